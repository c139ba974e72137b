package book

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{"": FilterAll, "all": FilterAll, "FREE": FilterFree, " premium ": FilterPremium} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFilter("cheap")
	assert.Error(t, err)
}

func TestFilter_Apply(t *testing.T) {
	records := []Record{
		{ID: "a", IsPremium: true},
		{ID: "b"},
		{ID: "c", IsPremium: true},
		{ID: "d"},
	}

	free := FilterFree.Apply(records)
	for _, r := range free {
		assert.False(t, r.IsPremium)
	}
	assert.Equal(t, []string{"b", "d"}, ids(free))

	premium := FilterPremium.Apply(records)
	for _, r := range premium {
		assert.True(t, r.IsPremium)
	}
	assert.Equal(t, []string{"a", "c"}, ids(premium))

	assert.Len(t, FilterAll.Apply(records), 4)
}

func TestRecord_Augmentation(t *testing.T) {
	orig := Record{ID: "ol_/works/OL1W", AuthorName: []string{"A"}, IA: []string{"x"}}

	withArchive := orig.WithArchiveID("myarchiveid")
	withEmbed := orig.WithEmbedURL("https://example.org/embed")

	assert.Equal(t, "myarchiveid", withArchive.ArchiveID)
	assert.Equal(t, "https://example.org/embed", withEmbed.EmbedURL)
	assert.Equal(t, orig.ID, withArchive.ID)
	assert.Empty(t, orig.ArchiveID)
	assert.Empty(t, orig.EmbedURL)

	withArchive.AuthorName[0] = "changed"
	assert.Equal(t, "A", orig.AuthorName[0])
}

func TestRecord_FirstAuthor(t *testing.T) {
	_, ok := Record{AuthorName: []string{}}.FirstAuthor()
	assert.False(t, ok)

	a, ok := Record{AuthorName: []string{" ", "Ursula K. Le Guin"}}.FirstAuthor()
	assert.True(t, ok)
	assert.Equal(t, "Ursula K. Le Guin", a)
}

func TestSummary(t *testing.T) {
	t.Run("uses truncated description", func(t *testing.T) {
		r := Record{
			Title:            StringPtr("Dune"),
			AuthorName:       []string{"Frank Herbert"},
			FirstPublishYear: IntPtr(1965),
			Description:      StringPtr(strings.Repeat("x", 250)),
		}
		s := Summary(r)
		assert.True(t, strings.HasPrefix(s, "Dune by Frank Herbert, published in 1965. "))
		assert.True(t, strings.HasSuffix(s, strings.Repeat("x", 200)+"..."))
	})

	t.Run("falls back to subjects", func(t *testing.T) {
		r := Record{Title: StringPtr("Cosmos"), AuthorName: []string{}, Subject: []string{"Astronomy", "Science", "Space", "History"}}
		s := Summary(r)
		assert.Contains(t, s, "Cosmos by Unknown Author. ")
		assert.Contains(t, s, "topics including Astronomy, Science, Space.")
		assert.NotContains(t, s, "History")
		assert.Contains(t, s, "exploration of Astronomy")
	})

	t.Run("generic fallback", func(t *testing.T) {
		s := Summary(Record{AuthorName: []string{}})
		assert.True(t, strings.HasPrefix(s, "Unknown Title by Unknown Author. An insightful work"))
	})
}

func TestRecord_WithLists(t *testing.T) {
	r := Record{ID: "gb_1", ISBN: []string{"9780547951973"}}.WithLists()

	assert.Equal(t, []string{}, r.AuthorName)
	assert.Equal(t, []string{}, r.Publisher)
	assert.Equal(t, []string{"9780547951973"}, r.ISBN)
	assert.Equal(t, []string{}, r.Subject)
	assert.Equal(t, []string{}, r.Language)
	assert.Nil(t, r.IA)
}
