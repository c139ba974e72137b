package browse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bookfinder/internal/book"
	"bookfinder/internal/discovery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSearcher answers each Aggregate call with the next queued result.
type stubSearcher struct {
	mu      sync.Mutex
	results []discovery.Result
	queries []string
	gate    chan struct{}
	entered chan struct{}
}

func (s *stubSearcher) Aggregate(ctx context.Context, text string, limit int) discovery.Result {
	s.mu.Lock()
	s.queries = append(s.queries, text)
	var res discovery.Result
	if len(s.results) > 0 {
		res = s.results[0]
		s.results = s.results[1:]
	}
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return res
}

func ok(records ...book.Record) discovery.Result {
	return discovery.Result{Records: records, Providers: 2}
}

func failed() discovery.Result {
	return discovery.Result{
		Records:   []book.Record{},
		Providers: 2,
		Failures: []discovery.Failure{
			{Provider: "openlibrary", Err: errors.New("down")},
			{Provider: "googlebooks", Err: errors.New("down")},
		},
	}
}

func batch(prefix string, n int, premiumEvery int) []book.Record {
	out := make([]book.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, book.Record{
			ID:         fmt.Sprintf("%s_%d", prefix, i),
			Title:      book.StringPtr(fmt.Sprintf("%s title %d", prefix, i)),
			AuthorName: []string{"Author"},
			IsPremium:  premiumEvery > 0 && i%premiumEvery == 0,
			Rating:     3,
		})
	}
	return out
}

func ids(records []book.Record) map[string]int {
	out := make(map[string]int, len(records))
	for _, r := range records {
		out[r.ID]++
	}
	return out
}

func TestController_SearchFirstPage(t *testing.T) {
	s := &stubSearcher{results: []discovery.Result{ok(batch("a", 35, 0)...)}}
	c := NewController(s, nil)

	snap, err := c.Search(context.Background(), "the hobbit", book.FilterAll)

	require.NoError(t, err)
	assert.Equal(t, StateLoaded, snap.State)
	assert.Len(t, snap.Records, PageSize)
	assert.True(t, snap.InitialLoadDone)
	assert.True(t, snap.CanLoadMore)
	assert.Equal(t, "a_0", snap.Records[0].ID)
	assert.Equal(t, []string{"the hobbit"}, s.queries)
}

func TestController_SearchRewritesQuery(t *testing.T) {
	s := &stubSearcher{results: []discovery.Result{ok(), ok()}}
	c := NewController(s, nil)

	snap, err := c.Search(context.Background(), "something with adventure", book.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, "the hobbit", snap.EffectiveQuery)

	snap, err = c.Search(context.Background(), "x", book.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, discovery.DefaultQuery, snap.EffectiveQuery)
	assert.Equal(t, []string{"the hobbit", "popular fiction"}, s.queries)
}

func TestController_FilterCorrectness(t *testing.T) {
	tests := []struct {
		filter book.Filter
		check  func(t *testing.T, r book.Record)
	}{
		{book.FilterFree, func(t *testing.T, r book.Record) { assert.False(t, r.IsPremium) }},
		{book.FilterPremium, func(t *testing.T, r book.Record) { assert.True(t, r.IsPremium) }},
		{book.FilterAll, func(t *testing.T, r book.Record) {}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			s := &stubSearcher{results: []discovery.Result{ok(batch("a", 40, 3)...)}}
			c := NewController(s, nil)

			snap, err := c.Search(context.Background(), "dune", tt.filter)
			require.NoError(t, err)
			require.NotEmpty(t, snap.Records)
			for _, r := range snap.Records {
				tt.check(t, r)
			}
			assert.Equal(t, tt.filter, snap.Filter)
		})
	}
}

func TestController_TotalFailure(t *testing.T) {
	s := &stubSearcher{results: []discovery.Result{failed()}}
	c := NewController(s, nil)

	snap, err := c.Search(context.Background(), "anything", book.FilterAll)

	assert.ErrorIs(t, err, ErrTotalFetchFailure)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, MsgFetchFailed, snap.Error)
	assert.Empty(t, snap.Records)
	assert.False(t, snap.InitialLoadDone)

	_, err = c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrLoadMoreUnavailable)
}

func TestController_EmptyResultIsLoaded(t *testing.T) {
	s := &stubSearcher{results: []discovery.Result{ok()}}
	c := NewController(s, nil)

	snap, err := c.Search(context.Background(), "zzzz", book.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, snap.State)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.CanLoadMore)
}

func TestController_LoadMoreMonotonicWithoutDuplicates(t *testing.T) {
	first := batch("a", 40, 0)
	// overlaps the first page and brings new ids
	second := append(append([]book.Record{}, first[10:30]...), batch("b", 30, 0)...)
	third := append(append([]book.Record{}, batch("b", 30, 0)...), batch("c", 5, 0)...)

	s := &stubSearcher{results: []discovery.Result{ok(first...), ok(second...), ok(third...)}}
	c := NewController(s, nil)

	snap, err := c.Search(context.Background(), "dune", book.FilterAll)
	require.NoError(t, err)
	prev := len(snap.Records)

	for i := 0; i < 2; i++ {
		snap, err = c.LoadMore(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(snap.Records), prev)
		for id, n := range ids(snap.Records) {
			assert.Equal(t, 1, n, "duplicate id %s", id)
		}
		prev = len(snap.Records)
	}

	assert.Len(t, snap.Records, 20+20+20)
	assert.Equal(t, StateLoaded, snap.State)
	assert.False(t, snap.LoadingMore)
}

func TestController_LoadMoreDropsDuplicateTitles(t *testing.T) {
	first := batch("a", 20, 0)
	dup := first[0]
	dup.ID = "gb_copy"
	s := &stubSearcher{results: []discovery.Result{ok(first...), ok(dup, batch("b", 1, 0)[0])}}
	c := NewController(s, nil)

	_, err := c.Search(context.Background(), "dune", book.FilterAll)
	require.NoError(t, err)
	snap, err := c.LoadMore(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Records, 21)
	assert.Equal(t, "b_0", snap.Records[20].ID)
}

func TestController_LoadMoreFailureKeepsRecords(t *testing.T) {
	s := &stubSearcher{results: []discovery.Result{ok(batch("a", 40, 0)...), failed()}}
	c := NewController(s, nil)

	_, err := c.Search(context.Background(), "dune", book.FilterAll)
	require.NoError(t, err)

	snap, err := c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrLoadMoreFailed)
	assert.Equal(t, MsgLoadMoreFailed, snap.Error)
	assert.Len(t, snap.Records, PageSize)
	assert.Equal(t, StateLoaded, snap.State)
}

func TestController_LoadMoreUnavailableBelowPage(t *testing.T) {
	s := &stubSearcher{results: []discovery.Result{ok(batch("a", 5, 0)...)}}
	c := NewController(s, nil)

	_, err := c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrLoadMoreUnavailable)

	_, err = c.Search(context.Background(), "dune", book.FilterAll)
	require.NoError(t, err)
	_, err = c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrLoadMoreUnavailable)
}

func TestController_ConcurrentLoadMoreIgnored(t *testing.T) {
	s := &stubSearcher{results: []discovery.Result{ok(batch("a", 20, 0)...), ok(batch("b", 20, 0)...)}}
	c := NewController(s, nil)
	_, err := c.Search(context.Background(), "dune", book.FilterAll)
	require.NoError(t, err)

	s.mu.Lock()
	s.gate = make(chan struct{})
	s.entered = make(chan struct{}, 1)
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(context.Background())
		done <- err
	}()
	<-s.entered

	snap, err := c.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrLoadInProgress)
	assert.True(t, snap.LoadingMore)
	assert.Equal(t, StateLoadingMore, snap.State)

	close(s.gate)
	require.NoError(t, <-done)
	assert.Len(t, c.Snapshot().Records, 40)
}

func TestController_StaleSearchDiscarded(t *testing.T) {
	gate := make(chan struct{})
	s := &stubSearcher{results: []discovery.Result{ok(batch("old", 20, 0)...)}}
	s.gate = gate
	s.entered = make(chan struct{}, 1)
	c := NewController(s, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Search(context.Background(), "old query", book.FilterAll)
		done <- err
	}()
	<-s.entered

	// A newer search starts and completes while the first one is in flight.
	s.mu.Lock()
	s.results = []discovery.Result{ok(batch("new", 3, 0)...)}
	s.gate = nil
	s.entered = nil
	s.mu.Unlock()

	snap, err := c.Search(context.Background(), "new query", book.FilterAll)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 3)

	// Release the old search: its result must not be committed.
	close(gate)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	final := c.Snapshot()
	assert.Equal(t, "new query", final.Query)
	require.Len(t, final.Records, 3)
	assert.Equal(t, "new_0", final.Records[0].ID)
}

func TestController_StaleLoadMoreDiscarded(t *testing.T) {
	s := &stubSearcher{results: []discovery.Result{ok(batch("a", 20, 0)...), ok(batch("b", 20, 0)...)}}
	c := NewController(s, nil)
	_, err := c.Search(context.Background(), "dune", book.FilterAll)
	require.NoError(t, err)

	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.entered = make(chan struct{}, 1)
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(context.Background())
		done <- err
	}()
	<-s.entered

	s.mu.Lock()
	s.results = []discovery.Result{ok(batch("c", 2, 0)...)}
	s.gate = nil
	s.entered = nil
	s.mu.Unlock()

	snap, err := c.SetFilter(context.Background(), book.FilterFree)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)

	close(gate)
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Len(t, c.Snapshot().Records, 2)
	assert.False(t, c.Snapshot().LoadingMore)
}

func TestController_SetTheme(t *testing.T) {
	c := NewController(&stubSearcher{}, nil)
	snap := c.SetTheme(ThemeReading)
	assert.Equal(t, ThemeReading, snap.Theme)
	assert.Equal(t, StateIdle, snap.State)
}

func TestController_SnapshotIsCopy(t *testing.T) {
	s := &stubSearcher{results: []discovery.Result{ok(batch("a", 3, 0)...)}}
	c := NewController(s, nil)
	snap, err := c.Search(context.Background(), "dune", book.FilterAll)
	require.NoError(t, err)

	snap.Records[0].ID = "mutated"
	assert.Equal(t, "a_0", c.Snapshot().Records[0].ID)
}

func TestParseTheme(t *testing.T) {
	theme, err := ParseTheme("")
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)

	theme, err = ParseTheme(" Dark ")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)

	_, err = ParseTheme("neon")
	assert.ErrorIs(t, err, ErrInvalidTheme)
}

func TestController_IdleSince(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewController(&stubSearcher{}, nil)
	c.now = func() time.Time { return now }

	c.SetTheme(ThemeDark)
	assert.Equal(t, now, c.IdleSince())
}
