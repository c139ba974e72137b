package reader

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"bookfinder/internal/book"
	"bookfinder/internal/platform/openlibrary"
)

// Kind tags the way a book is presented to the reader.
type Kind string

const (
	KindEmbedViewer  Kind = "embed_viewer"
	KindOpenExternal Kind = "open_external"
	KindShowDetails  Kind = "show_details"
)

const (
	archiveEmbedURL = "https://archive.org/embed/"
	googleEmbedURL  = "https://books.google.com/books?id=%s&lpg=PP1&pg=PP1&output=embed"

	editionsLimit = 10
	similarCount  = 4
)

var previewIDPattern = regexp.MustCompile(`id=([^&]+)`)

// Outcome is the result of resolving a record.
type Outcome struct {
	Kind      Kind          `json:"kind"`
	URL       string        `json:"url,omitempty"`
	ArchiveID string        `json:"archive_id,omitempty"`
	Record    book.Record   `json:"record"`
	Similar   []book.Record `json:"similar,omitempty"`
	Summary   string        `json:"summary,omitempty"`
}

// LibraryLookup is the Open Library surface used to find a readable edition.
type LibraryLookup interface {
	Editions(ctx context.Context, workKey string, limit int) ([]openlibrary.Edition, error)
	BorrowURL(ctx context.Context, workKey string) (string, error)
}

// SimilarFinder lists other books by the same author.
type SimilarFinder interface {
	SimilarByAuthor(ctx context.Context, r book.Record, n int) []book.Record
}

type Config struct {
	// StepTimeout bounds each secondary lookup.
	StepTimeout time.Duration
	// SimilarTimeout bounds the similar books fetch of a details outcome.
	SimilarTimeout time.Duration
}

// Resolver decides how a selected record can be read.
type Resolver struct {
	lookup  LibraryLookup
	similar SimilarFinder
	cfg     Config
	log     *slog.Logger
}

func NewResolver(cfg Config, lookup LibraryLookup, similar SimilarFinder, log *slog.Logger) *Resolver {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 5 * time.Second
	}
	if cfg.SimilarTimeout <= 0 {
		cfg.SimilarTimeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{lookup: lookup, similar: similar, cfg: cfg, log: log}
}

// Resolve never fails. Every lookup error degrades to a details outcome.
func (res *Resolver) Resolve(ctx context.Context, r book.Record) Outcome {
	if r.IsPremium {
		return res.details(ctx, r)
	}
	if r.Source == book.SourceCommercial {
		return res.resolveCommercial(ctx, r)
	}
	return res.resolveLibrary(ctx, r)
}

func (res *Resolver) resolveCommercial(ctx context.Context, r book.Record) Outcome {
	if r.PreviewLink != nil && *r.PreviewLink != "" {
		if m := previewIDPattern.FindStringSubmatch(*r.PreviewLink); m != nil {
			embed := googleEmbed(m[1])
			return Outcome{Kind: KindEmbedViewer, URL: embed, Record: r.WithEmbedURL(embed)}
		}
		return Outcome{Kind: KindOpenExternal, URL: *r.PreviewLink, Record: r}
	}
	if r.InfoLink != nil && *r.InfoLink != "" {
		return Outcome{Kind: KindOpenExternal, URL: *r.InfoLink, Record: r}
	}
	return res.details(ctx, r)
}

func (res *Resolver) resolveLibrary(ctx context.Context, r book.Record) Outcome {
	if len(r.IA) > 0 && r.IA[0] != "" {
		return archiveOutcome(r, r.IA[0])
	}
	key := r.KeyText()
	if key == "" || res.lookup == nil {
		return res.details(ctx, r)
	}

	editions, err := res.editions(ctx, key)
	if err != nil {
		res.log.Debug("editions lookup failed", "book_id", r.ID, "key", key, "error", err)
		return res.details(ctx, r)
	}
	for _, e := range editions {
		if id := e.ArchiveID(); id != "" {
			return archiveOutcome(r, id)
		}
	}
	for _, e := range editions {
		if u := e.ExternalURL(); u != "" {
			return Outcome{Kind: KindOpenExternal, URL: u, Record: r}
		}
	}

	borrow, err := res.borrowURL(ctx, key)
	if err != nil {
		res.log.Debug("borrow lookup failed", "book_id", r.ID, "key", key, "error", err)
		return res.details(ctx, r)
	}
	if borrow != "" {
		return Outcome{Kind: KindEmbedViewer, URL: borrow, Record: r.WithEmbedURL(borrow)}
	}
	return res.details(ctx, r)
}

func (res *Resolver) editions(ctx context.Context, key string) ([]openlibrary.Edition, error) {
	ctx, cancel := context.WithTimeout(ctx, res.cfg.StepTimeout)
	defer cancel()
	return res.lookup.Editions(ctx, key, editionsLimit)
}

func (res *Resolver) borrowURL(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, res.cfg.StepTimeout)
	defer cancel()
	return res.lookup.BorrowURL(ctx, key)
}

func (res *Resolver) details(ctx context.Context, r book.Record) Outcome {
	out := Outcome{
		Kind:    KindShowDetails,
		Record:  r,
		Similar: []book.Record{},
		Summary: book.Summary(r),
	}
	if res.similar == nil {
		return out
	}
	if _, ok := r.FirstAuthor(); !ok {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, res.cfg.SimilarTimeout)
	defer cancel()
	out.Similar = res.similar.SimilarByAuthor(ctx, r, similarCount)
	return out
}

func archiveOutcome(r book.Record, id string) Outcome {
	embed := archiveEmbedURL + url.PathEscape(id)
	return Outcome{
		Kind:      KindEmbedViewer,
		URL:       embed,
		ArchiveID: id,
		Record:    r.WithArchiveID(id).WithEmbedURL(embed),
	}
}

func googleEmbed(id string) string {
	return fmt.Sprintf(googleEmbedURL, id)
}
