// Package hotlist 抓取并解析 tophub 热榜页面
package hotlist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/net/html"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

var (
	rowSel       = cascadia.MustCompile("tr")
	rankSel      = cascadia.MustCompile("td:nth-child(1)")
	titleLinkSel = cascadia.MustCompile("td:nth-child(2) a")
	titleCellSel = cascadia.MustCompile("td:nth-child(2)")
	hotnessSel   = cascadia.MustCompile("td.ws")
)

// Crawler 热榜抓取接口
type Crawler interface {
	Crawl(ctx context.Context, url string) ([]model.RawTopic, error)
}

// Tophub tophub.today 榜单抓取器
type Tophub struct {
	client *http.Client
	retry  retrypolicy.RetryPolicy[*http.Response]
	now    func() time.Time
}

var _ Crawler = (*Tophub)(nil)

// NewTophub 创建抓取器，timeout 为单次请求超时
func NewTophub(timeout time.Duration) *Tophub {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Tophub{
		client: &http.Client{Timeout: timeout},
		retry: retrypolicy.NewBuilder[*http.Response]().
			HandleIf(func(resp *http.Response, err error) bool {
				return err != nil || (resp != nil && resp.StatusCode >= http.StatusInternalServerError)
			}).
			WithBackoff(time.Second, 4*time.Second).
			WithMaxRetries(2).
			ReturnLastFailure().
			Build(),
		now: time.Now,
	}
}

// Crawl 抓取单个榜单页面
func (t *Tophub) Crawl(ctx context.Context, url string) ([]model.RawTopic, error) {
	resp, err := failsafe.With(t.retry).WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
		req.Header.Set("Referer", "https://tophub.today/")
		resp, err := t.client.Do(req)
		if err == nil && resp.StatusCode >= http.StatusInternalServerError {
			// 关闭即将被重试丢弃的响应体
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return resp, fmt.Errorf("tophub status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	topics, err := Parse(resp.Body, url, t.now())
	if err != nil {
		return nil, err
	}
	logger.Log.Infof("榜单 %s 抓取成功，共 %d 条", boardID(url), len(topics))
	return topics, nil
}

// Parse 解析榜单 HTML，第一行视为表头
func Parse(r io.Reader, sourceURL string, scrapedAt time.Time) ([]model.RawTopic, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	rows := rowSel.MatchAll(doc)
	if len(rows) <= 1 {
		return []model.RawTopic{}, nil
	}

	ts := scrapedAt.Format(model.TimeLayout)
	topics := make([]model.RawTopic, 0, len(rows)-1)
	for i, row := range rows[1:] {
		topic := model.RawTopic{
			Rank:      i + 1,
			Title:     "N/A",
			Hotness:   "0",
			Link:      "N/A",
			SourceURL: sourceURL,
			ScrapedAt: ts,
		}

		if cell := rankSel.MatchFirst(row); cell != nil {
			if n, err := strconv.Atoi(strings.ReplaceAll(text(cell), ".", "")); err == nil {
				topic.Rank = n
			}
		}

		if a := titleLinkSel.MatchFirst(row); a != nil {
			topic.Title = text(a)
			topic.Link = attr(a, "href")
		} else if cell := titleCellSel.MatchFirst(row); cell != nil {
			topic.Title = text(cell)
		}

		if hot := hotnessSel.MatchFirst(row); hot != nil {
			if s := text(hot); s != "" {
				topic.Hotness = s
			}
		}

		topics = append(topics, topic)
	}
	return topics, nil
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func boardID(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
