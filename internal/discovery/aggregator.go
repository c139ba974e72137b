package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bookfinder/internal/book"
)

// SimilarLimit is the number of records fetched when looking for books by
// the same author.
const SimilarLimit = 20

// Provider fetches normalized records from one catalog.
type Provider interface {
	ID() string
	Search(ctx context.Context, q Query, limit int) ([]book.Record, error)
}

// Failure records a provider that contributed nothing to a result.
type Failure struct {
	Provider string `json:"provider"`
	Err      error  `json:"-"`
	Message  string `json:"message"`
}

// Result is the outcome of one aggregation.
type Result struct {
	Records   []book.Record
	Failures  []Failure
	Providers int
}

// TotalFailure reports whether every provider failed.
func (r Result) TotalFailure() bool {
	return r.Providers > 0 && len(r.Failures) == r.Providers
}

type Config struct {
	// ProviderTimeout bounds each provider call independently.
	ProviderTimeout time.Duration
}

// Aggregator fans a query out to every provider and merges the answers.
type Aggregator struct {
	providers  []Provider
	classifier *book.Classifier
	tables     *Tables
	timeout    time.Duration
	log        *slog.Logger
}

func NewAggregator(cfg Config, classifier *book.Classifier, log *slog.Logger, providers ...Provider) *Aggregator {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	if classifier == nil {
		classifier = book.NewClassifier()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		providers:  providers,
		classifier: classifier,
		tables:     DefaultTables(),
		timeout:    cfg.ProviderTimeout,
		log:        log,
	}
}

// Aggregate parses text and runs it against every provider.
func (a *Aggregator) Aggregate(ctx context.Context, text string, limit int) Result {
	return a.AggregateQuery(ctx, a.tables.Parse(text), limit)
}

// AggregateQuery runs q against every provider concurrently. A failing
// provider contributes no records. Records keep provider order, then fetch
// order, and are classified before duplicates are dropped.
func (a *Aggregator) AggregateQuery(ctx context.Context, q Query, limit int) Result {
	batches := make([][]book.Record, len(a.providers))
	errs := make([]error, len(a.providers))

	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			recs, err := p.Search(pctx, q, limit)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.ID(), err)
				return nil
			}
			batches[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Providers: len(a.providers)}
	var all []book.Record
	for i, p := range a.providers {
		if errs[i] != nil {
			a.log.Warn("provider search failed",
				"provider", p.ID(),
				"query", q.Text,
				"mode", q.Mode,
				"error", errs[i],
			)
			res.Failures = append(res.Failures, Failure{Provider: p.ID(), Err: errs[i], Message: errs[i].Error()})
			continue
		}
		for _, r := range batches[i] {
			all = append(all, a.classifier.Apply(r))
		}
	}
	res.Records = book.Dedup(all)

	a.log.Debug("aggregated search",
		"query", q.Text,
		"mode", q.Mode,
		"records", len(res.Records),
		"failures", len(res.Failures),
	)
	return res
}

// SimilarByAuthor returns up to n records by the first author of r,
// excluding r itself. Records without an author yield nothing.
func (a *Aggregator) SimilarByAuthor(ctx context.Context, r book.Record, n int) []book.Record {
	author, ok := r.FirstAuthor()
	if !ok || n <= 0 {
		return []book.Record{}
	}
	res := a.AggregateQuery(ctx, AuthorQuery(author), SimilarLimit)

	out := make([]book.Record, 0, n)
	for _, s := range res.Records {
		if s.ID == r.ID {
			continue
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}
