package browse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bookfinder/internal/book"
	"bookfinder/internal/discovery"
)

const (
	// PageSize is the number of records shown per page.
	PageSize = 20
	// FetchLimit is the per-provider limit of every aggregation.
	FetchLimit = 40

	MsgFetchFailed    = "Failed to fetch books. Please try again."
	MsgLoadMoreFailed = "Failed to load more books"
)

var (
	ErrTotalFetchFailure   = errors.New("every provider failed")
	ErrLoadMoreFailed      = errors.New("load more failed")
	ErrLoadInProgress      = errors.New("load more already in progress")
	ErrLoadMoreUnavailable = errors.New("load more is not available")
	ErrSuperseded          = errors.New("superseded by a newer operation")
	ErrInvalidTheme        = errors.New("invalid theme")
)

// State is the lifecycle of the displayed list.
type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateLoaded      State = "loaded"
	StateFailed      State = "failed"
	StateLoadingMore State = "loading_more"
)

// Theme is the display theme chosen by the user.
type Theme string

const (
	ThemeLight   Theme = "light"
	ThemeDark    Theme = "dark"
	ThemeReading Theme = "reading"
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ThemeLight, nil
	case ThemeLight, ThemeDark, ThemeReading:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Searcher is the part of the aggregator the controller drives.
type Searcher interface {
	Aggregate(ctx context.Context, text string, limit int) discovery.Result
}

// Snapshot is a copy of the application state of one session.
type Snapshot struct {
	State           State         `json:"state"`
	Query           string        `json:"query"`
	EffectiveQuery  string        `json:"effective_query"`
	Filter          book.Filter   `json:"filter"`
	Theme           Theme         `json:"theme"`
	Records         []book.Record `json:"records"`
	InitialLoadDone bool          `json:"initial_load_done"`
	LoadingMore     bool          `json:"loading_more"`
	CanLoadMore     bool          `json:"can_load_more"`
	Error           string        `json:"error,omitempty"`
}

// Controller owns the displayed list of one browse session. Network calls
// run outside the lock; results are committed only if no newer operation
// started in the meantime.
type Controller struct {
	searcher Searcher
	rewriter *discovery.Rewriter
	now      func() time.Time

	mu              sync.Mutex
	state           State
	query           string
	effective       string
	filter          book.Filter
	theme           Theme
	records         []book.Record
	initialLoadDone bool
	loadingMore     bool
	errMsg          string
	token           uint64
	lastUsed        time.Time
}

func NewController(searcher Searcher, rewriter *discovery.Rewriter) *Controller {
	if rewriter == nil {
		rewriter = discovery.NewRewriter(nil)
	}
	c := &Controller{
		searcher: searcher,
		rewriter: rewriter,
		now:      time.Now,
		state:    StateIdle,
		filter:   book.FilterAll,
		theme:    ThemeLight,
		records:  []book.Record{},
	}
	c.lastUsed = c.now()
	return c
}

// Search replaces the displayed list with the first page for query under
// filter.
func (c *Controller) Search(ctx context.Context, query string, filter book.Filter) (Snapshot, error) {
	c.mu.Lock()
	c.token++
	token := c.token
	c.query = query
	c.effective = c.rewriter.Rewrite(query)
	c.filter = filter
	c.records = []book.Record{}
	c.initialLoadDone = false
	c.loadingMore = false
	c.errMsg = ""
	c.state = StateLoading
	c.touch()
	effective := c.effective
	c.mu.Unlock()

	res := c.searcher.Aggregate(ctx, effective, FetchLimit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token {
		return c.snapshotLocked(), ErrSuperseded
	}
	if res.TotalFailure() {
		c.state = StateFailed
		c.errMsg = MsgFetchFailed
		return c.snapshotLocked(), ErrTotalFetchFailure
	}

	page := filter.Apply(res.Records)
	if len(page) > PageSize {
		page = page[:PageSize]
	}
	c.records = page
	c.state = StateLoaded
	c.initialLoadDone = true
	return c.snapshotLocked(), nil
}

// SetQuery re-runs the search with a new query and the current filter.
func (c *Controller) SetQuery(ctx context.Context, query string) (Snapshot, error) {
	c.mu.Lock()
	filter := c.filter
	c.mu.Unlock()
	return c.Search(ctx, query, filter)
}

// SetFilter re-runs the current query under a new filter.
func (c *Controller) SetFilter(ctx context.Context, filter book.Filter) (Snapshot, error) {
	c.mu.Lock()
	query := c.query
	c.mu.Unlock()
	return c.Search(ctx, query, filter)
}

// SetTheme changes the theme without touching the list.
func (c *Controller) SetTheme(theme Theme) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.theme = theme
	c.touch()
	return c.snapshotLocked()
}

// LoadMore appends up to one page of records not yet displayed. It is only
// available once a full page is shown, and a second call while one is
// running is rejected.
func (c *Controller) LoadMore(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.loadingMore {
		defer c.mu.Unlock()
		return c.snapshotLocked(), ErrLoadInProgress
	}
	if c.state != StateLoaded || len(c.records) < PageSize {
		defer c.mu.Unlock()
		return c.snapshotLocked(), ErrLoadMoreUnavailable
	}
	c.loadingMore = true
	c.state = StateLoadingMore
	c.touch()
	token := c.token
	effective := c.effective
	filter := c.filter
	c.mu.Unlock()

	res := c.searcher.Aggregate(ctx, effective, FetchLimit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token {
		return c.snapshotLocked(), ErrSuperseded
	}
	c.loadingMore = false
	c.state = StateLoaded
	if res.TotalFailure() {
		c.errMsg = MsgLoadMoreFailed
		return c.snapshotLocked(), ErrLoadMoreFailed
	}

	fresh := book.ExcludeIDs(filter.Apply(res.Records), c.records)
	merged := book.Dedup(append(append(make([]book.Record, 0, len(c.records)+len(fresh)), c.records...), fresh...))
	next := merged[len(c.records):]
	if len(next) > PageSize {
		next = next[:PageSize]
	}
	c.records = append(c.records, next...)
	c.errMsg = ""
	return c.snapshotLocked(), nil
}

// Find returns a displayed record by id.
func (c *Controller) Find(id string) (book.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return book.Record{}, false
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// IdleSince reports when the session was last used.
func (c *Controller) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

func (c *Controller) touch() {
	c.lastUsed = c.now()
}

func (c *Controller) snapshotLocked() Snapshot {
	records := make([]book.Record, len(c.records))
	copy(records, c.records)
	return Snapshot{
		State:           c.state,
		Query:           c.query,
		EffectiveQuery:  c.effective,
		Filter:          c.filter,
		Theme:           c.theme,
		Records:         records,
		InitialLoadDone: c.initialLoadDone,
		LoadingMore:     c.loadingMore,
		CanLoadMore:     c.state == StateLoaded && len(c.records) >= PageSize,
		Error:           c.errMsg,
	}
}
