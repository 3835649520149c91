package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// TMDbClient fetches ranking pages and per-title details from a TMDb-style
// API. It implements both RankingSource and DetailSource, since both
// endpoints live on the same host and share one rate budget.
type TMDbClient struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
	limiter  *rate.Limiter
}

// TMDbOption configures the TMDb client.
type TMDbOption func(*TMDbClient)

// WithTMDbBaseURL sets a custom base URL (for testing).
func WithTMDbBaseURL(u string) TMDbOption {
	return func(c *TMDbClient) { c.baseURL = u }
}

// WithTMDbHTTPClient sets a custom HTTP client.
func WithTMDbHTTPClient(hc *http.Client) TMDbOption {
	return func(c *TMDbClient) { c.http = hc }
}

// WithTMDbLimiter overrides the default rate limiter.
func WithTMDbLimiter(l *rate.Limiter) TMDbOption {
	return func(c *TMDbClient) { c.limiter = l }
}

// NewTMDbClient creates a TMDb client. The default limiter stays well under
// the API's published request budget.
func NewTMDbClient(apiKey, language string, opts ...TMDbOption) *TMDbClient {
	c := &TMDbClient{
		apiKey:   apiKey,
		baseURL:  "https://api.themoviedb.org/3",
		language: language,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(4, 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tmdbPopularResponse struct {
	Page    int `json:"page"`
	Results []struct {
		ID          int64   `json:"id"`
		Title       string  `json:"title"`
		ReleaseDate string  `json:"release_date"`
		Popularity  float64 `json:"popularity"`
		VoteCount   int64   `json:"vote_count"`
		VoteAverage float64 `json:"vote_average"`
	} `json:"results"`
}

// FetchPage returns one page of popular-movie stubs. An empty result list is
// returned as-is; the caller decides whether that ends the run.
func (c *TMDbClient) FetchPage(ctx context.Context, page int) ([]Stub, error) {
	body, err := c.get(ctx, "/movie/popular", url.Values{"page": {strconv.Itoa(page)}})
	if err != nil {
		return nil, eris.Wrapf(err, "tmdb: fetch page %d", page)
	}

	var resp tmdbPopularResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrapf(err, "tmdb: decode page %d", page)
	}

	stubs := make([]Stub, 0, len(resp.Results))
	for _, r := range resp.Results {
		stubs = append(stubs, Stub{
			TMDbID:      r.ID,
			Title:       r.Title,
			ReleaseDate: r.ReleaseDate,
			Popularity:  r.Popularity,
			VoteCount:   r.VoteCount,
			AverageVote: r.VoteAverage,
		})
	}
	return stubs, nil
}

type tmdbDetailResponse struct {
	IMDbID string `json:"imdb_id"`
	Budget int64  `json:"budget"`
}

// FetchDetail returns the IMDb cross-reference id and budget for one title.
// An empty IMDb id or a zero budget in the payload maps to a nil field.
func (c *TMDbClient) FetchDetail(ctx context.Context, tmdbID int64) (*Detail, error) {
	body, err := c.get(ctx, fmt.Sprintf("/movie/%d", tmdbID), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "tmdb: fetch detail %d", tmdbID)
	}

	var resp tmdbDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrapf(err, "tmdb: decode detail %d", tmdbID)
	}

	d := &Detail{}
	if resp.IMDbID != "" && resp.IMDbID != "N/A" {
		id := resp.IMDbID
		d.IMDbID = &id
	}
	if resp.Budget > 0 {
		b := resp.Budget
		d.Budget = &b
	}
	return d, nil
}

func (c *TMDbClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limit wait")
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
