package openlibrary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://openlibrary.org"

// ErrUnexpectedStatus wraps every non-200 answer from Open Library.
var ErrUnexpectedStatus = errors.New("openlibrary: unexpected status code")

// StatusError carries the status code of a non-200 answer.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %d", ErrUnexpectedStatus, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

type Config struct {
	BaseURL   string
	UserAgent string
	RPS       int
	Timeout   time.Duration
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.RPS)), cfg.RPS),
	}
}

// StringList decodes either a JSON string or an array of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// First returns the first non-empty entry.
func (s StringList) First() string {
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Doc matches one entry of search.json docs.
type Doc struct {
	Key                 string   `json:"key"`
	Title               *string  `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    *int     `json:"first_publish_year"`
	CoverI              int      `json:"cover_i"`
	Publisher           []string `json:"publisher"`
	ISBN                []string `json:"isbn"`
	Subject             []string `json:"subject"`
	Language            []string `json:"language"`
	NumberOfPagesMedian *int     `json:"number_of_pages_median"`
	EditionCount        *int     `json:"edition_count"`
	IA                  []string `json:"ia"`
}

// SearchResponse matches search.json
type SearchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []Doc `json:"docs"`
}

// subjectResponse matches subjects/{subject}.json
type subjectResponse struct {
	Works []struct {
		Key     string  `json:"key"`
		Title   *string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		CoverID          int      `json:"cover_id"`
		FirstPublishYear *int     `json:"first_publish_year"`
		EditionCount     *int     `json:"edition_count"`
		Subject          []string `json:"subject"`
		IA               string   `json:"ia"`
	} `json:"works"`
}

// Edition matches one entry of {work}/editions.json
type Edition struct {
	Key       string     `json:"key"`
	Title     string     `json:"title"`
	IA        StringList `json:"ia"`
	OCAID     string     `json:"ocaid"`
	URL       StringList `json:"url"`
	Wikipedia string     `json:"wikipedia"`
	Links     []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"links"`
}

// ArchiveID returns the Internet Archive identifier of the edition, if any.
func (e Edition) ArchiveID() string {
	if id := e.IA.First(); id != "" {
		return id
	}
	return strings.TrimSpace(e.OCAID)
}

// ExternalURL returns the first link-like field of the edition, if any.
func (e Edition) ExternalURL() string {
	if u := e.URL.First(); u != "" {
		return u
	}
	if e.Wikipedia != "" {
		return e.Wikipedia
	}
	if len(e.Links) > 0 {
		return e.Links[0].URL
	}
	return ""
}

type editionsResponse struct {
	Entries []Edition `json:"entries"`
}

type borrowResponse struct {
	URL string `json:"url"`
}

// SearchText runs a free text search.
func (c *Client) SearchText(ctx context.Context, q string, limit int) (*SearchResponse, error) {
	v := url.Values{}
	v.Set("q", q)
	v.Set("limit", strconv.Itoa(limit))
	return c.search(ctx, v)
}

// SearchLanguage lists works available in the given MARC language code.
func (c *Client) SearchLanguage(ctx context.Context, code string, limit int) (*SearchResponse, error) {
	v := url.Values{}
	v.Set("language", code)
	v.Set("limit", strconv.Itoa(limit))
	return c.search(ctx, v)
}

// SearchAuthor lists works by author name.
func (c *Client) SearchAuthor(ctx context.Context, author string, limit int) (*SearchResponse, error) {
	v := url.Values{}
	v.Set("author", author)
	v.Set("limit", strconv.Itoa(limit))
	return c.search(ctx, v)
}

func (c *Client) search(ctx context.Context, v url.Values) (*SearchResponse, error) {
	var res SearchResponse
	if err := c.get(ctx, c.baseURL+"/search.json?"+v.Encode(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SearchSubject lists works filed under a subject, shaped like search results.
func (c *Client) SearchSubject(ctx context.Context, subject string, limit int) (*SearchResponse, error) {
	u := fmt.Sprintf("%s/subjects/%s.json?limit=%d", c.baseURL, url.PathEscape(strings.ToLower(subject)), limit)

	var raw subjectResponse
	if err := c.get(ctx, u, &raw); err != nil {
		return nil, err
	}

	res := &SearchResponse{NumFound: len(raw.Works), Docs: make([]Doc, 0, len(raw.Works))}
	for _, w := range raw.Works {
		d := Doc{
			Key:              w.Key,
			Title:            w.Title,
			FirstPublishYear: w.FirstPublishYear,
			CoverI:           w.CoverID,
			EditionCount:     w.EditionCount,
			Subject:          w.Subject,
		}
		for _, a := range w.Authors {
			d.AuthorName = append(d.AuthorName, a.Name)
		}
		if w.IA != "" {
			d.IA = []string{w.IA}
		}
		res.Docs = append(res.Docs, d)
	}
	return res, nil
}

// Editions lists up to limit editions of a work. workKey is like "/works/OL45804W".
func (c *Client) Editions(ctx context.Context, workKey string, limit int) ([]Edition, error) {
	u := fmt.Sprintf("%s%s/editions.json?limit=%d", c.baseURL, normalizeKey(workKey), limit)

	var res editionsResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// BorrowURL returns the borrow page of a work, or "" when none is offered.
func (c *Client) BorrowURL(ctx context.Context, workKey string) (string, error) {
	u := fmt.Sprintf("%s%s/borrow.json", c.baseURL, normalizeKey(workKey))

	var res borrowResponse
	if err := c.get(ctx, u, &res); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(res.URL), nil
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	return key
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
