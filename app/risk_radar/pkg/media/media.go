// Package media 按关键词检索视频/帖子及评论
package media

import (
	"context"
	"fmt"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search/searxng"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/search/tavily"
)

// 单次检索的硬上限
const (
	MaxItemsLimit    = 5
	MaxCommentsLimit = 15
)

// Limits 单次检索的数量限制
type Limits struct {
	MaxItems    int
	MaxComments int
}

// Clamp 将限制收敛到 [1, 上限]
func (l Limits) Clamp() Limits {
	if l.MaxItems <= 0 || l.MaxItems > MaxItemsLimit {
		l.MaxItems = MaxItemsLimit
	}
	if l.MaxComments <= 0 || l.MaxComments > MaxCommentsLimit {
		l.MaxComments = MaxCommentsLimit
	}
	return l
}

// Crawler 媒体检索接口
type Crawler interface {
	Platform() string
	Search(ctx context.Context, keyword string, limits Limits) (*model.MediaBundle, error)
}

// NewCrawler 根据配置创建检索器
func NewCrawler(cfg *config.Config) (Crawler, error) {
	platform := cfg.Media.Platform
	switch cfg.Media.Provider {
	case "", "simulated":
		return NewSimulated(platform, nil), nil
	case "searxng":
		if cfg.Media.SearXNG.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return NewWeb(platform, searxng.NewClient(cfg.Media.SearXNG.BaseURL, cfg.Media.SearXNG.Timeout), nil), nil
	case "tavily":
		if cfg.Media.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return NewWeb(platform, tavily.NewClient(cfg.Media.Tavily.APIKey), nil), nil
	default:
		return nil, fmt.Errorf("unknown media provider: %s", cfg.Media.Provider)
	}
}

func bundle(keyword, platform string, items []model.MediaItem) *model.MediaBundle {
	if items == nil {
		items = []model.MediaItem{}
	}
	comments := 0
	for _, it := range items {
		comments += len(it.Comments)
	}
	return &model.MediaBundle{
		Keyword:       keyword,
		Platform:      platform,
		Items:         items,
		TotalItems:    len(items),
		TotalComments: comments,
	}
}
