// Package searxng 自建 SearXNG 实例的检索客户端
package searxng

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Client struct {
	endpoint *url.URL
	err      error
	client   *http.Client
}

var _ search.Searcher = (*Client)(nil)

// NewClient timeout 单位为秒，baseURL 非法时在 Search 中返回错误
func NewClient(baseURL string, timeout int) *Client {
	u, err := url.Parse(baseURL)
	if err == nil {
		u.Path = "/search"
	}
	return &Client{
		endpoint: u,
		err:      err,
		client:   search.NewHTTPClient(time.Duration(timeout) * time.Second),
	}
}

// hit 不同版本的实例日期字段名不同
type hit struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"publishedDate"`
	PubDate       string  `json:"pubdate"`
}

func (h hit) result() search.Result {
	date := h.PublishedDate
	if date == "" {
		date = h.PubDate
	}
	return search.Result{Title: h.Title, URL: h.URL, Content: h.Content, Score: h.Score, PublishedDate: date}
}

func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	if c.err != nil {
		return nil, fmt.Errorf("invalid searxng url: %w", c.err)
	}

	params := url.Values{"q": {req.Query}, "format": {"json"}, "categories": {"general"}}
	if req.News {
		params.Set("categories", "news")
	}
	if req.Language != "" {
		params.Set("language", req.Language)
	}
	if req.TimeRange != "" {
		params.Set("time_range", req.TimeRange)
	}
	u := *c.endpoint
	u.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", userAgent)

	var body struct {
		Results []hit `json:"results"`
	}
	if err := search.DoJSON(c.client, "searxng", httpReq, &body); err != nil {
		return nil, err
	}

	n := len(body.Results)
	if req.MaxResults > 0 {
		n = min(n, req.MaxResults)
	}
	resp := &search.Response{Results: make([]search.Result, 0, n)}
	for _, h := range body.Results[:n] {
		resp.Results = append(resp.Results, h.result())
	}
	return resp, nil
}
