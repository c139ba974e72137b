package googlebooks

import (
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

const (
	DefaultBaseURL = "https://www.googleapis.com/books/v1"

	// MaxResults is the largest page the volumes endpoint accepts.
	MaxResults = 40
)

var ErrUnexpectedStatus = errors.New("googlebooks: unexpected status code")

type Config struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	RPS       int
	Timeout   time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
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
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.RPS)), cfg.RPS),
	}
}

type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

type VolumeInfo struct {
	Title               *string              `json:"title"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
	PageCount           int                  `json:"pageCount"`
	Categories          []string             `json:"categories"`
	ImageLinks          *ImageLinks          `json:"imageLinks"`
	Language            string               `json:"language"`
	PreviewLink         string               `json:"previewLink"`
	InfoLink            string               `json:"infoLink"`
}

// Volume matches one item of the volumes search response.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

type VolumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Search queries the volumes endpoint. q may carry qualifiers such as
// "lang:" or "subject:". limit is capped at MaxResults.
func (c *Client) Search(ctx context.Context, q string, limit int) (*VolumesResponse, error) {
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}
	v := url.Values{}
	v.Set("q", q)
	v.Set("maxResults", strconv.Itoa(limit))
	v.Set("orderBy", "relevance")
	if c.apiKey != "" {
		v.Set("key", c.apiKey)
	}

	var res VolumesResponse
	if err := c.get(ctx, c.baseURL+"/volumes?"+v.Encode(), &res); err != nil {
		return nil, err
	}
	return &res, nil
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
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
