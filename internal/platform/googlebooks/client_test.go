package googlebooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "subject:history", q.Get("q"))
		assert.Equal(t, "40", q.Get("maxResults"))
		assert.Equal(t, "relevance", q.Get("orderBy"))
		assert.Equal(t, "secret", q.Get("key"))
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"pD6arNyKyi8C","volumeInfo":{
			"title":"The Hobbit","authors":["J.R.R. Tolkien"],"publishedDate":"2012-02-15",
			"imageLinks":{"thumbnail":"http://books.google.com/books/content?id=pD6arNyKyi8C&printsec=frontcover&img=1&zoom=1&edge=curl"},
			"industryIdentifiers":[{"type":"ISBN_13","identifier":"9780547951973"}],
			"pageCount":300,"language":"en",
			"previewLink":"http://books.google.com/books?id=pD6arNyKyi8C&printsec=frontcover"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", RPS: 100})
	res, err := c.Search(context.Background(), "subject:history", 500)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	v := res.Items[0]
	assert.Equal(t, "pD6arNyKyi8C", v.ID)
	assert.Equal(t, "The Hobbit", *v.VolumeInfo.Title)
	require.NotNil(t, v.VolumeInfo.ImageLinks)
	assert.Contains(t, v.VolumeInfo.ImageLinks.Thumbnail, "edge=curl")
	assert.Equal(t, "9780547951973", v.VolumeInfo.IndustryIdentifiers[0].Identifier)
}

func TestClient_SearchUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, RPS: 100})
	_, err := c.Search(context.Background(), "dune", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}
