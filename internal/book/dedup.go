package book

import (
	"sort"
	"strings"
)

// dedupKey is the normalized identity of a record: lowercased title plus the
// sorted, lowercased author list. A nil title is its own value, so two
// untitled records with the same authors collapse into one.
type dedupKey struct {
	hasTitle bool
	title    string
	authors  string
}

func keyOf(r Record) dedupKey {
	k := dedupKey{}
	if r.Title != nil {
		k.hasTitle = true
		k.title = strings.ToLower(*r.Title)
	}
	authors := make([]string, len(r.AuthorName))
	for i, a := range r.AuthorName {
		authors[i] = strings.ToLower(a)
	}
	sort.Strings(authors)
	k.authors = strings.Join(authors, "\x00")
	return k
}

// Dedup keeps the first occurrence of every (title, author set) key.
func Dedup(records []Record) []Record {
	seen := make(map[dedupKey]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := keyOf(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// ExcludeIDs drops records whose id already appears in existing.
func ExcludeIDs(records, existing []Record) []Record {
	ids := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		ids[r.ID] = struct{}{}
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := ids[r.ID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}
