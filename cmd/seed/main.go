package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"bookfinder/internal/book"
	"bookfinder/internal/config"
	"bookfinder/internal/discovery"
	"bookfinder/internal/platform/googlebooks"
	"bookfinder/internal/platform/openlibrary"
	"bookfinder/internal/provider"
	"bookfinder/internal/shelf"
)

// fetchLimit is how many records each seed query asks the providers for.
const fetchLimit = 20

// searcher is the slice of the aggregator the seeder needs.
type searcher interface {
	Aggregate(ctx context.Context, text string, limit int) discovery.Result
}

func main() {
	var (
		owner    = flag.String("owner", "demo", "shelf owner to seed")
		queries  = flag.String("queries", "the hobbit,dune,pride and prejudice", "comma separated search queries")
		perQuery = flag.Int("per-query", 3, "records shelved per query")
	)
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := cfg.Logger()
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, closeRepo, err := shelf.OpenRepository(ctx, cfg)
	if err != nil {
		log.Error("cannot open shelf store", "err", err)
		os.Exit(1)
	}
	defer closeRepo()

	aggregator := discovery.NewAggregator(
		discovery.Config{ProviderTimeout: cfg.ProviderTimeout},
		book.NewClassifier(),
		log,
		provider.NewLibrary(openlibrary.NewClient(openlibrary.Config{
			BaseURL:   cfg.OpenLibraryBaseURL,
			UserAgent: cfg.UserAgent,
			RPS:       cfg.ProviderRPS,
		})),
		provider.NewCommercial(googlebooks.NewClient(googlebooks.Config{
			BaseURL:   cfg.GoogleBooksBaseURL,
			APIKey:    cfg.GoogleBooksAPIKey,
			UserAgent: cfg.UserAgent,
			RPS:       cfg.ProviderRPS,
		})),
	)

	added, err := seed(ctx, log, aggregator, shelf.NewService(repo), *owner, splitQueries(*queries), *perQuery)
	if err != nil {
		log.Error("seed failed", "owner", *owner, "err", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d books onto shelf %q\n", added, *owner)
}

// seed shelves the first n records of each query and returns how many were
// new. A query whose providers all fail is skipped.
func seed(ctx context.Context, log *slog.Logger, s searcher, svc *shelf.Service, owner string, queries []string, n int) (int, error) {
	added := 0
	for _, q := range queries {
		res := s.Aggregate(ctx, q, max(fetchLimit, n))
		if res.TotalFailure() {
			log.Warn("skipping query", "query", q, "failures", len(res.Failures))
			continue
		}
		for i, r := range res.Records {
			if i == n {
				break
			}
			ok, err := svc.Add(ctx, owner, r)
			if err != nil {
				return added, fmt.Errorf("add %s: %w", r.ID, err)
			}
			if ok {
				added++
			}
		}
	}
	return added, nil
}

func splitQueries(s string) []string {
	var out []string
	for _, q := range strings.Split(s, ",") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
