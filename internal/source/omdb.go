package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// OMDbClient fetches genre/rating/vote metadata keyed by IMDb id from an
// OMDb-style API. The API marks absent values with the literal "N/A" and
// formats vote counts with thousands separators; both are normalized here so
// downstream code only sees typed optionals. Unparseable values are treated
// as absent, never as zero.
type OMDbClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// OMDbOption configures the OMDb client.
type OMDbOption func(*OMDbClient)

// WithOMDbBaseURL sets a custom base URL (for testing).
func WithOMDbBaseURL(u string) OMDbOption {
	return func(c *OMDbClient) { c.baseURL = u }
}

// WithOMDbHTTPClient sets a custom HTTP client.
func WithOMDbHTTPClient(hc *http.Client) OMDbOption {
	return func(c *OMDbClient) { c.http = hc }
}

// WithOMDbLimiter overrides the default request rate limit.
func WithOMDbLimiter(l *rate.Limiter) OMDbOption {
	return func(c *OMDbClient) { c.limiter = l }
}

// NewOMDbClient creates an OMDb client.
func NewOMDbClient(apiKey string, opts ...OMDbOption) *OMDbClient {
	c := &OMDbClient{
		apiKey:  apiKey,
		baseURL: "https://www.omdbapi.com",
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

type omdbResponse struct {
	Response   string `json:"Response"`
	Genre      string `json:"Genre"`
	IMDbRating string `json:"imdbRating"`
	IMDbVotes  string `json:"imdbVotes"`
}

// FetchMetadata returns genre/rating/votes for one IMDb id, or (nil, nil)
// when the source has no record for it.
func (c *OMDbClient) FetchMetadata(ctx context.Context, imdbID string) (*Metadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "omdb: rate limit wait")
	}

	params := url.Values{
		"apikey": {c.apiKey},
		"i":      {imdbID},
		"plot":   {"short"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "omdb: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "omdb: fetch %s", imdbID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "omdb: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("omdb: status %d: %s", resp.StatusCode, string(body))
	}

	var raw omdbResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrapf(err, "omdb: decode %s", imdbID)
	}
	if raw.Response == "False" {
		return nil, nil
	}

	meta := &Metadata{}
	if raw.Genre != "" && raw.Genre != "N/A" {
		g := raw.Genre
		meta.Genre = &g
	}
	if r := parseOMDbFloat(raw.IMDbRating); r != nil {
		meta.IMDbRating = r
	}
	if v := parseOMDbVotes(raw.IMDbVotes); v != nil {
		meta.IMDbVotes = v
	}
	return meta, nil
}

func parseOMDbFloat(s string) *float64 {
	if s == "" || s == "N/A" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseOMDbVotes(s string) *int64 {
	if s == "" || s == "N/A" {
		return nil
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
