package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, title *string, authors ...string) Record {
	if authors == nil {
		authors = []string{}
	}
	return Record{ID: id, Title: title, AuthorName: authors}
}

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestDedup(t *testing.T) {
	t.Run("keeps first occurrence", func(t *testing.T) {
		in := []Record{
			rec("ol_1", StringPtr("The Hobbit"), "J.R.R. Tolkien"),
			rec("gb_1", StringPtr("the hobbit"), "j.r.r. tolkien"),
			rec("ol_2", StringPtr("Dune"), "Frank Herbert"),
		}
		assert.Equal(t, []string{"ol_1", "ol_2"}, ids(Dedup(in)))
	})

	t.Run("author order does not matter", func(t *testing.T) {
		in := []Record{
			rec("ol_1", StringPtr("Good Omens"), "Terry Pratchett", "Neil Gaiman"),
			rec("gb_1", StringPtr("Good Omens"), "Neil Gaiman", "Terry Pratchett"),
		}
		assert.Equal(t, []string{"ol_1"}, ids(Dedup(in)))
	})

	t.Run("different authors are distinct", func(t *testing.T) {
		in := []Record{
			rec("ol_1", StringPtr("Poems"), "Emily Dickinson"),
			rec("ol_2", StringPtr("Poems"), "Walt Whitman"),
		}
		assert.Len(t, Dedup(in), 2)
	})

	t.Run("author set is not a prefix match", func(t *testing.T) {
		in := []Record{
			rec("ol_1", StringPtr("Anthology"), "A"),
			rec("ol_2", StringPtr("Anthology"), "A", "B"),
		}
		assert.Len(t, Dedup(in), 2)
	})

	// Untitled records with matching authors collapse, even across providers.
	t.Run("nil titles compare equal", func(t *testing.T) {
		in := []Record{
			rec("ol_1", nil),
			rec("gb_1", nil),
		}
		assert.Equal(t, []string{"ol_1"}, ids(Dedup(in)))
	})

	t.Run("nil title differs from empty title", func(t *testing.T) {
		in := []Record{
			rec("ol_1", nil),
			rec("gb_1", StringPtr("")),
		}
		assert.Len(t, Dedup(in), 2)
	})

	t.Run("does not reorder or mutate input", func(t *testing.T) {
		in := []Record{
			rec("gb_2", StringPtr("B"), "Y", "X"),
			rec("ol_1", StringPtr("A"), "X"),
		}
		out := Dedup(in)
		assert.Equal(t, []string{"gb_2", "ol_1"}, ids(out))
		assert.Equal(t, []string{"Y", "X"}, in[0].AuthorName)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := []Record{
			rec("ol_1", StringPtr("A"), "X"),
			rec("ol_2", StringPtr("a"), "x"),
			rec("ol_3", StringPtr("B"), "X"),
			rec("ol_4", nil),
		}
		once := Dedup(in)
		require.Len(t, once, 3)
		assert.Equal(t, once, Dedup(once))
	})
}

func TestExcludeIDs(t *testing.T) {
	existing := []Record{rec("ol_1", StringPtr("A")), rec("gb_2", StringPtr("B"))}
	incoming := []Record{rec("gb_2", StringPtr("B")), rec("ol_3", StringPtr("C")), rec("ol_1", StringPtr("A"))}

	assert.Equal(t, []string{"ol_3"}, ids(ExcludeIDs(incoming, existing)))
	assert.Empty(t, ExcludeIDs(nil, existing))
	assert.Len(t, ExcludeIDs(incoming, nil), 3)
}
