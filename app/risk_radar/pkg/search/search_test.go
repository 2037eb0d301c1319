package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search/searxng"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search/tavily"
)

func TestSearXNG_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "暴雨", q.Get("q"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "news", q.Get("categories"))
		assert.Equal(t, "zh-CN", q.Get("language"))
		assert.Equal(t, "week", q.Get("time_range"))
		_, _ = w.Write([]byte(`{"query":"暴雨","results":[
			{"title":"a","url":"https://a","content":"ca","publishedDate":"2025-01-01"},
			{"title":"b","url":"https://b","pubdate":"2025-01-02"},
			{"title":"c","url":"https://c"}]}`))
	}))
	defer srv.Close()

	c := searxng.NewClient(srv.URL, 5)
	resp, err := c.Search(context.Background(), &search.Request{
		Query: "暴雨", News: true, Language: "zh-CN", TimeRange: "week", MaxResults: 2,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "2025-01-01", resp.Results[0].PublishedDate)
	assert.Equal(t, "2025-01-02", resp.Results[1].PublishedDate)
}

func TestSearXNG_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := searxng.NewClient(srv.URL, 5).Search(context.Background(), &search.Request{Query: "x"})
	var se *search.StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Retryable())
	assert.Equal(t, "searxng", se.Provider)
}

func TestTavily_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "news", body["topic"])
		assert.EqualValues(t, 5, body["max_results"])
		_, _ = w.Write([]byte(`{"results":[{"title":"t","url":"https://t","content":"c","raw_content":"raw","score":0.9}]}`))
	}))
	defer srv.Close()

	c := tavily.NewClient("key").WithEndpoint(srv.URL)
	resp, err := c.Search(context.Background(), &search.Request{Query: "q", News: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "raw", resp.Results[0].RawContent)
	assert.InDelta(t, 0.9, resp.Results[0].Score, 1e-9)
}

func TestTavily_BadRequestNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := tavily.NewClient("key").WithEndpoint(srv.URL).Search(context.Background(), &search.Request{Query: "q"})
	var se *search.StatusError
	require.True(t, errors.As(err, &se))
	assert.False(t, se.Retryable())
}
