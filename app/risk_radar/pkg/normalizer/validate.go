package normalizer

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// MinReasonLength 风险理由的最小字符数，短于此长度视为缺乏依据
const MinReasonLength = 10

// 风险分数范围
const (
	MinScore = 1
	MaxScore = 10
)

// negativeWords 缺少风险分数时用于兜底判断的负面词
var negativeWords = []string{
	"负面", "争议", "质疑", "投诉", "维权", "事故", "丑闻",
	"违法", "暴力", "曝光", "造假", "欺诈",
}

// ValidateItem 校验并规范化一条风险条目
//
// 标题与理由同时为空、或理由不足 MinReasonLength 个字符时返回 false。
// risk_level 被转换为 1-10 的整数，无法解析时按负面词兜底；
// further_investigate 缺失时由分数推导。
func ValidateItem(raw map[string]any) (model.RiskItem, bool) {
	title := strings.TrimSpace(String(raw, "topic", ""))
	if title == "" {
		title = strings.TrimSpace(String(raw, "title", ""))
	}
	reason := strings.TrimSpace(String(raw, "reason", ""))

	if title == "" && reason == "" {
		return model.RiskItem{}, false
	}
	if utf8.RuneCountInString(reason) < MinReasonLength {
		return model.RiskItem{}, false
	}
	if title == "" {
		title = "未命名话题"
	}

	score, ok := scoreOf(raw)
	if !ok {
		score = HeuristicScore(title + " " + reason)
	}

	further, ok := Bool(raw, "further_investigate")
	if !ok {
		further = score >= model.InvestigateThreshold
	}

	return model.RiskItem{
		ID:                 String(raw, "id", ""),
		Topic:              title,
		Platform:           nonEmpty(String(raw, "platform", ""), "未知"),
		Hotness:            String(raw, "hotness", ""),
		RiskLevel:          score,
		Category:           nonEmpty(String(raw, "category", ""), "其他"),
		Reason:             reason,
		FurtherInvestigate: further,
		SourceURL:          String(raw, "source_url", ""),
		Timestamp:          String(raw, "timestamp", ""),
	}, true
}

// HeuristicScore 根据文本中的负面词给出兜底分数：命中为中（5），否则为低（2）
func HeuristicScore(text string) int {
	for _, w := range negativeWords {
		if strings.Contains(text, w) {
			return 5
		}
	}
	return 2
}

func scoreOf(raw map[string]any) (int, bool) {
	if f := Float(raw, "risk_level", math.NaN()); !math.IsNaN(f) {
		return int(math.Round(Clamp(f, MinScore, MaxScore))), true
	}
	if lv, ok := model.ParseLevel(String(raw, "risk_level", "")); ok {
		return levelScore(lv), true
	}
	if lv, ok := model.ParseLevel(String(raw, "level", "")); ok {
		return levelScore(lv), true
	}
	return 0, false
}

func levelScore(l model.Level) int {
	switch l {
	case model.LevelHigh:
		return 8
	case model.LevelMedium:
		return 5
	default:
		return 2
	}
}

func nonEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
