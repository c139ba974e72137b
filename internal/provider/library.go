package provider

import (
	"context"

	"bookfinder/internal/book"
	"bookfinder/internal/discovery"
	"bookfinder/internal/platform/openlibrary"
)

const LibraryID = "openlibrary"

// LibraryClient is the subset of the Open Library client the provider uses.
type LibraryClient interface {
	SearchText(ctx context.Context, q string, limit int) (*openlibrary.SearchResponse, error)
	SearchLanguage(ctx context.Context, code string, limit int) (*openlibrary.SearchResponse, error)
	SearchSubject(ctx context.Context, subject string, limit int) (*openlibrary.SearchResponse, error)
	SearchAuthor(ctx context.Context, author string, limit int) (*openlibrary.SearchResponse, error)
}

// Library serves records from Open Library.
type Library struct {
	client LibraryClient
}

func NewLibrary(client LibraryClient) *Library {
	return &Library{client: client}
}

func (l *Library) ID() string { return LibraryID }

func (l *Library) Search(ctx context.Context, q discovery.Query, limit int) ([]book.Record, error) {
	var (
		res *openlibrary.SearchResponse
		err error
	)
	switch q.Mode {
	case discovery.ModeLanguage:
		res, err = l.client.SearchLanguage(ctx, q.LanguageCode, limit)
	case discovery.ModeSubject:
		res, err = l.client.SearchSubject(ctx, q.Text, limit)
	case discovery.ModeAuthor:
		res, err = l.client.SearchAuthor(ctx, q.Text, limit)
	default:
		res, err = l.client.SearchText(ctx, q.Text, limit)
	}
	if err != nil {
		return nil, err
	}

	out := make([]book.Record, 0, len(res.Docs))
	for _, doc := range res.Docs {
		out = append(out, NormalizeLibrary(doc))
	}
	return out, nil
}
