package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOMDbClient_FetchMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "tt0133093", r.URL.Query().Get("i"))
		w.Write([]byte(`{"Response": "True", "Genre": "Action, Sci-Fi", "imdbRating": "8.7", "imdbVotes": "1,900,123"}`))
	}))
	defer srv.Close()

	c := NewOMDbClient("test-key", WithOMDbBaseURL(srv.URL))
	meta, err := c.FetchMetadata(context.Background(), "tt0133093")
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.NotNil(t, meta.Genre)
	assert.Equal(t, "Action, Sci-Fi", *meta.Genre)
	require.NotNil(t, meta.IMDbRating)
	assert.Equal(t, 8.7, *meta.IMDbRating)
	require.NotNil(t, meta.IMDbVotes)
	assert.Equal(t, int64(1_900_123), *meta.IMDbVotes)
}

func TestOMDbClient_FetchMetadata_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response": "False", "Error": "Incorrect IMDb ID."}`))
	}))
	defer srv.Close()

	c := NewOMDbClient("test-key", WithOMDbBaseURL(srv.URL))
	meta, err := c.FetchMetadata(context.Background(), "tt0000000")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestOMDbClient_FetchMetadata_NAFieldsAreNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response": "True", "Genre": "N/A", "imdbRating": "N/A", "imdbVotes": "N/A"}`))
	}))
	defer srv.Close()

	c := NewOMDbClient("test-key", WithOMDbBaseURL(srv.URL))
	meta, err := c.FetchMetadata(context.Background(), "tt0000001")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Nil(t, meta.Genre)
	assert.Nil(t, meta.IMDbRating)
	assert.Nil(t, meta.IMDbVotes)
}

func TestOMDbClient_FetchMetadata_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOMDbClient("test-key", WithOMDbBaseURL(srv.URL))
	_, err := c.FetchMetadata(context.Background(), "tt0000001")
	assert.Error(t, err)
}

func TestParseOMDbVotes(t *testing.T) {
	tests := []struct {
		in   string
		want *int64
	}{
		{"1,234", int64Ptr(1234)},
		{"42", int64Ptr(42)},
		{"N/A", nil},
		{"", nil},
		{"not a number", nil},
	}
	for _, tt := range tests {
		got := parseOMDbVotes(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, "input %q", tt.in)
		} else {
			require.NotNil(t, got, "input %q", tt.in)
			assert.Equal(t, *tt.want, *got)
		}
	}
}

func int64Ptr(n int64) *int64 { return &n }
