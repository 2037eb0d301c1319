package spotter

import (
	"sort"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// 重要内容的判定阈值
const (
	importantLikes      = 200
	importantComments   = 20
	importantViews      = 5000
	importantEngagement = 1.0 // 百分比
	maxImportantVideos  = 10
)

// IsImportant 高互动内容判定
//
// 点赞 > 200 且评论 > 20，或播放 > 5000 且互动率 > 1%，
// 互动率 = (点赞 + 评论) / 播放 × 100。
func IsImportant(likes, comments, views int) bool {
	if likes > importantLikes && comments > importantComments {
		return true
	}
	if views <= importantViews {
		return false
	}
	rate := float64(likes+comments) / float64(views) * 100
	return rate > importantEngagement
}

// collectImportant 从一次检索结果中挑出高互动内容
func collectImportant(keyword string, b *model.MediaBundle) []model.ImportantVideo {
	var out []model.ImportantVideo
	for _, item := range b.Items {
		comments := len(item.Comments)
		if !IsImportant(item.Likes, comments, item.Views) {
			continue
		}
		out = append(out, model.ImportantVideo{
			Keyword:    keyword,
			Platform:   b.Platform,
			Title:      item.Title,
			URL:        item.URL,
			Likes:      item.Likes,
			Comments:   comments,
			Views:      item.Views,
			CreateTime: item.CreateTime,
		})
	}
	return out
}

// RankImportant 按 URL（缺失时按标题）去重，按点赞+评论降序排列，最多保留 10 条
func RankImportant(videos []model.ImportantVideo) []model.ImportantVideo {
	seen := make(map[string]struct{}, len(videos))
	out := make([]model.ImportantVideo, 0, len(videos))
	for _, v := range videos {
		key := v.URL
		if key == "" {
			key = v.Title
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Likes+out[i].Comments > out[j].Likes+out[j].Comments
	})
	if len(out) > maxImportantVideos {
		out = out[:maxImportantVideos]
	}
	return out
}
