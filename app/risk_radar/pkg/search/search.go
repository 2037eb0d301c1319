// Package search 定义网页检索接口，供媒体调研使用
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody 错误响应中保留的正文长度
const maxErrorBody = 1024

// Searcher 通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 搜索请求
type Request struct {
	Query      string
	News       bool // 仅检索新闻类结果
	MaxResults int
	Language   string // 如 zh-CN，为空表示不限
	// TimeRange day / week / month / year，为空表示不限
	TimeRange         string
	IncludeRawContent bool
}

// Response 搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	RawContent    string
	Score         float64
	PublishedDate string
}

// StatusError 搜索服务返回了非 200 状态码
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.Code, e.Body)
}

// Retryable 限流与服务端错误可以重试
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// NewHTTPClient 返回带超时的 HTTP 客户端，timeout <= 0 时使用 30 秒
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// DoJSON 发送请求并把 200 响应解码到 out，其余状态码返回 *StatusError
func DoJSON(client *http.Client, provider string, req *http.Request, out any) error {
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &StatusError{Provider: provider, Code: res.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", provider, err)
	}
	return nil
}
