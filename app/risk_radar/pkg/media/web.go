package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/go-shiori/go-readability"
	"github.com/google/uuid"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search"
)

// maxPageBytes 正文抓取的最大字节数
const maxPageBytes = 2 << 20

// Web 基于网页检索的媒体检索器
//
// 每条搜索结果视为一条内容，正文由 readability 提取，
// 正文中的句子作为评论样本提供给分析阶段。
type Web struct {
	platform string
	searcher search.Searcher
	client   *http.Client
	retry    retrypolicy.RetryPolicy[*search.Response]
	now      func() time.Time
}

// NewWeb 创建网页检索器，client 为空时使用 15 秒超时的默认客户端
func NewWeb(platform string, searcher search.Searcher, client *http.Client) *Web {
	if client == nil {
		client = search.NewHTTPClient(15 * time.Second)
	}
	return &Web{
		platform: platform,
		searcher: searcher,
		client:   client,
		retry: retrypolicy.NewBuilder[*search.Response]().
			HandleIf(func(_ *search.Response, err error) bool {
				var se *search.StatusError
				return errors.As(err, &se) && se.Retryable()
			}).
			WithBackoff(time.Second, 8*time.Second).
			WithMaxRetries(2).
			ReturnLastFailure().
			Build(),
		now: time.Now,
	}
}

// Platform 平台代码
func (w *Web) Platform() string {
	return w.platform
}

// Search 检索关键词并抓取正文
func (w *Web) Search(ctx context.Context, keyword string, limits Limits) (*model.MediaBundle, error) {
	limits = limits.Clamp()

	resp, err := failsafe.With(w.retry).WithContext(ctx).Get(func() (*search.Response, error) {
		return w.searcher.Search(ctx, &search.Request{
			Query:             keyword,
			News:              true,
			MaxResults:        limits.MaxItems,
			Language:          "zh-CN",
			TimeRange:         "week",
			IncludeRawContent: true,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}

	ts := w.now().Format(model.TimeLayout)
	items := make([]model.MediaItem, 0, limits.MaxItems)
	for _, r := range resp.Results {
		if len(items) >= limits.MaxItems {
			break
		}

		body := r.RawContent
		if body == "" {
			text, err := w.extract(ctx, r.URL)
			if err != nil {
				logger.Log.Debugf("正文提取失败 %s: %v", r.URL, err)
			}
			body = text
		}
		if body == "" {
			body = r.Content
		}

		created := r.PublishedDate
		if created == "" {
			created = ts
		}
		items = append(items, model.MediaItem{
			ID:         uuid.NewString(),
			Platform:   w.platform,
			Title:      r.Title,
			Content:    r.Content,
			Author:     host(r.URL),
			URL:        r.URL,
			Comments:   sentences(body, limits.MaxComments, host(r.URL), created),
			CreateTime: created,
		})
	}

	return bundle(keyword, w.platform, items), nil
}

func (w *Web) extract(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), u)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(article.TextContent), nil
}

// sentences 将正文切分为句子样本
func sentences(text string, limit int, user, ts string) []model.MediaComment {
	out := []model.MediaComment{}
	split := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '。', '！', '？', '!', '?', '\n':
			return true
		}
		return false
	})
	for _, s := range split {
		if len(out) >= limit {
			break
		}
		s = strings.TrimSpace(s)
		if len([]rune(s)) < 6 {
			continue
		}
		out = append(out, model.MediaComment{
			ID:        uuid.NewString(),
			Content:   s,
			User:      user,
			CreatedAt: ts,
		})
	}
	return out
}

func host(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "unknown"
}
