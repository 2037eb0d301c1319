package media

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

var (
	titleTemplates = []string{
		"%s现场实拍",
		"震撼！%s最新动态曝光",
		"直击%s现场，精彩瞬间",
		"%s最新视频出炉",
		"深度解析：%s背后的故事",
	}
	commentTemplates = []string{
		"这个%s视频太震撼了！",
		"%s看起来很专业",
		"没想到%s还有这样的一面",
		"支持%s，为他们点赞",
		"关于%s，希望官方尽快回应",
	}
)

// Simulated 生成模拟数据的检索器，用于无外部数据源的环境
type Simulated struct {
	platform string
	mu       sync.Mutex
	rnd      *rand.Rand
	now      func() time.Time
}

// NewSimulated 创建模拟检索器，rnd 为空时使用当前时间作为种子
func NewSimulated(platform string, rnd *rand.Rand) *Simulated {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulated{platform: platform, rnd: rnd, now: time.Now}
}

// Platform 平台代码
func (s *Simulated) Platform() string {
	return s.platform
}

// Search 生成不超过上限的模拟视频与评论
func (s *Simulated) Search(ctx context.Context, keyword string, limits Limits) (*model.MediaBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limits = limits.Clamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().Format(model.TimeLayout)
	items := make([]model.MediaItem, 0, limits.MaxItems)
	for i := 0; i < limits.MaxItems; i++ {
		commentCount := limits.MaxComments
		if limits.MaxComments > 3 {
			commentCount = 3 + s.rnd.Intn(limits.MaxComments-2)
		}

		comments := make([]model.MediaComment, 0, commentCount)
		for j := 0; j < commentCount; j++ {
			comments = append(comments, model.MediaComment{
				ID:        uuid.NewString(),
				Content:   fmt.Sprintf(commentTemplates[s.rnd.Intn(len(commentTemplates))], keyword),
				User:      fmt.Sprintf("用户%d", 1000+s.rnd.Intn(9000)),
				Likes:     s.rnd.Intn(501),
				CreatedAt: ts,
			})
		}

		items = append(items, model.MediaItem{
			ID:         uuid.NewString(),
			Platform:   s.platform,
			Title:      fmt.Sprintf(titleTemplates[s.rnd.Intn(len(titleTemplates))], keyword),
			Author:     fmt.Sprintf("创作者%d", 1000+s.rnd.Intn(9000)),
			URL:        fmt.Sprintf("https://%s.com/video/%d", s.platform, 100000+s.rnd.Intn(900000)),
			Likes:      100 + s.rnd.Intn(9901),
			Views:      1000 + s.rnd.Intn(99001),
			Comments:   comments,
			CreateTime: ts,
		})
	}

	return bundle(keyword, s.platform, items), nil
}
