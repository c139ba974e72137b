package provider

import (
	"context"

	"bookfinder/internal/book"
	"bookfinder/internal/discovery"
	"bookfinder/internal/platform/googlebooks"
)

const CommercialID = "googlebooks"

// CommercialClient is the subset of the Google Books client the provider uses.
type CommercialClient interface {
	Search(ctx context.Context, q string, limit int) (*googlebooks.VolumesResponse, error)
}

// Commercial serves records from Google Books.
type Commercial struct {
	client CommercialClient
}

func NewCommercial(client CommercialClient) *Commercial {
	return &Commercial{client: client}
}

func (c *Commercial) ID() string { return CommercialID }

func (c *Commercial) Search(ctx context.Context, q discovery.Query, limit int) ([]book.Record, error) {
	if limit > googlebooks.MaxResults {
		limit = googlebooks.MaxResults
	}
	res, err := c.client.Search(ctx, commercialQuery(q), limit)
	if err != nil {
		return nil, err
	}

	out := make([]book.Record, 0, len(res.Items))
	for _, v := range res.Items {
		out = append(out, NormalizeCommercial(v))
	}
	return out, nil
}

func commercialQuery(q discovery.Query) string {
	switch q.Mode {
	case discovery.ModeLanguage:
		return "lang:" + q.LanguageCode
	case discovery.ModeSubject:
		return "subject:" + q.Text
	case discovery.ModeAuthor:
		return "inauthor:" + q.Text
	default:
		return q.Text
	}
}
