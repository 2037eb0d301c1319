package analyzer

import (
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

const (
	// maxPrimary 高/中风险话题最多选取的数量
	maxPrimary = 3
	// minSelected 至少调研的话题数量
	minSelected = 2
	// maxKeywords 传递给深度调研的关键词上限
	maxKeywords = 5
)

// SelectTopics 选择需要深度调研的话题
//
//  1. 最多取 3 个高/中风险话题
//  2. 不足 2 个时用低风险话题补足
//  3. 仍不足 2 个时退回到原始列表的前 2 个
func SelectTopics(items []model.DecisionItem) []model.DecisionItem {
	if len(items) == 0 {
		return nil
	}

	var highMedium, low []model.DecisionItem
	for _, item := range items {
		if isHighOrMedium(item.Level) {
			highMedium = append(highMedium, item)
		} else {
			low = append(low, item)
		}
	}

	selected := make([]model.DecisionItem, 0, maxPrimary)
	selected = append(selected, highMedium[:min(len(highMedium), maxPrimary)]...)

	if len(selected) < minSelected {
		need := minSelected - len(selected)
		selected = append(selected, low[:min(len(low), need)]...)
	}

	if len(selected) < minSelected {
		selected = append([]model.DecisionItem(nil), items[:min(len(items), minSelected)]...)
	}
	return selected
}

// DeriveKeywords 由选中话题生成检索关键词
//
// 标题为主关键词且排在前面，理由中按空白切分、长度大于 2 的片段为补充关键词；
// 去重后最多保留 5 个。
func DeriveKeywords(items []model.DecisionItem) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, maxKeywords)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || len(out) >= maxKeywords {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, item := range items {
		add(item.Title)
	}
	for _, item := range items {
		for _, word := range strings.Fields(item.Reason) {
			if utf8.RuneCountInString(word) > 2 {
				add(word)
			}
		}
	}
	return out
}

func isHighOrMedium(level string) bool {
	l, ok := model.ParseLevel(level)
	return ok && l >= model.LevelMedium
}
