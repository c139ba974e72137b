package book

import (
	"errors"
	"strings"
)

// Source identifies the provider a record came from.
type Source string

const (
	SourceLibrary    Source = "library"
	SourceCommercial Source = "commercial"
)

// Record is the canonical book shape every provider item is mapped into.
type Record struct {
	ID                  string   `json:"id"`
	Key                 *string  `json:"key"`
	Source              Source   `json:"source"`
	Title               *string  `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    *int     `json:"first_publish_year"`
	CoverURL            *string  `json:"coverUrl"`
	Publisher           []string `json:"publisher"`
	ISBN                []string `json:"isbn"`
	Subject             []string `json:"subject"`
	Language            []string `json:"language"`
	NumberOfPagesMedian *int     `json:"number_of_pages_median"`
	EditionCount        *int     `json:"edition_count"`
	Description         *string  `json:"description"`
	PreviewLink         *string  `json:"previewLink"`
	InfoLink            *string  `json:"infoLink"`
	IA                  []string `json:"ia"`
	IsPremium           bool     `json:"isPremium"`
	Rating              float64  `json:"rating"`

	// Set only on records handed out by the reader.
	ArchiveID string `json:"archiveId,omitempty"`
	EmbedURL  string `json:"embedUrl,omitempty"`
}

// TitleText returns the title or "" when unknown.
func (r Record) TitleText() string {
	if r.Title == nil {
		return ""
	}
	return *r.Title
}

// KeyText returns the native key or "" when unknown.
func (r Record) KeyText() string {
	if r.Key == nil {
		return ""
	}
	return *r.Key
}

// FirstAuthor returns the first listed author, if any.
func (r Record) FirstAuthor() (string, bool) {
	for _, a := range r.AuthorName {
		if strings.TrimSpace(a) != "" {
			return a, true
		}
	}
	return "", false
}

// WithArchiveID returns a copy of r carrying the archive identifier.
func (r Record) WithArchiveID(id string) Record {
	r = r.clone()
	r.ArchiveID = id
	return r
}

// WithEmbedURL returns a copy of r carrying an embeddable viewer URL.
func (r Record) WithEmbedURL(u string) Record {
	r = r.clone()
	r.EmbedURL = u
	return r
}

// WithLists returns r with every list field non-nil. IA stays nil when absent.
func (r Record) WithLists() Record {
	r.AuthorName = emptyIfNil(r.AuthorName)
	r.Publisher = emptyIfNil(r.Publisher)
	r.ISBN = emptyIfNil(r.ISBN)
	r.Subject = emptyIfNil(r.Subject)
	r.Language = emptyIfNil(r.Language)
	return r
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r Record) clone() Record {
	r.AuthorName = cloneStrings(r.AuthorName)
	r.Publisher = cloneStrings(r.Publisher)
	r.ISBN = cloneStrings(r.ISBN)
	r.Subject = cloneStrings(r.Subject)
	r.Language = cloneStrings(r.Language)
	if r.IA != nil {
		r.IA = cloneStrings(r.IA)
	}
	return r
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Filter restricts a result list by premium classification.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterFree    Filter = "free"
	FilterPremium Filter = "premium"
)

// ParseFilter maps user input to a Filter. Empty input means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterFree:
		return FilterFree, nil
	case FilterPremium:
		return FilterPremium, nil
	default:
		return "", errors.New("invalid filter: " + s)
	}
}

// Allows reports whether r passes the filter.
func (f Filter) Allows(r Record) bool {
	switch f {
	case FilterFree:
		return !r.IsPremium
	case FilterPremium:
		return r.IsPremium
	default:
		return true
	}
}

// Apply returns the records that pass the filter, preserving order.
func (f Filter) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Allows(r) {
			out = append(out, r)
		}
	}
	return out
}

// StringPtr and IntPtr are small helpers for building optional fields.
func StringPtr(s string) *string { return &s }

func IntPtr(i int) *int { return &i }
