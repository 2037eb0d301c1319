// Package tavily Tavily 检索服务客户端
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
)

// DefaultEndpoint Tavily 搜索接口地址
const DefaultEndpoint = "https://api.tavily.com/search"

const defaultMaxResults = 5

type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

var _ search.Searcher = (*Client)(nil)

func NewClient(apiKey string) *Client {
	return &Client{apiKey: apiKey, endpoint: DefaultEndpoint, client: search.NewHTTPClient(0)}
}

// WithEndpoint 替换接口地址，测试时指向本地服务
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

type query struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth,omitempty"`
	Topic             string `json:"topic,omitempty"`
	TimeRange         string `json:"time_range,omitempty"`
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content,omitempty"`
}

type answer struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		RawContent    string  `json:"raw_content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	q := query{
		Query:             req.Query,
		SearchDepth:       "basic",
		Topic:             "general",
		TimeRange:         req.TimeRange,
		MaxResults:        req.MaxResults,
		IncludeRawContent: req.IncludeRawContent,
	}
	if req.News {
		q.Topic = "news"
	}
	if q.MaxResults <= 0 {
		q.MaxResults = defaultMaxResults
	}

	payload, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	var a answer
	if err := search.DoJSON(c.client, "tavily", httpReq, &a); err != nil {
		return nil, err
	}

	resp := &search.Response{Results: make([]search.Result, 0, len(a.Results))}
	for _, r := range a.Results {
		resp.Results = append(resp.Results, search.Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			RawContent:    r.RawContent,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}
	return resp, nil
}
