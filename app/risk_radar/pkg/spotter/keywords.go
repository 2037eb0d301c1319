package spotter

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/normalizer"
)

const (
	minKeywordLen = 2
	maxKeywordLen = 20

	// LLM 未给出可用计划时的默认爬取参数，最终仍会被截断到检索上限
	defaultPlanItems    = 8
	defaultPlanComments = 20
)

// stoplist 出现即判定为无关的词
var stoplist = []string{"测试", "示例", "例子", "test", "example", "问题", "事件", "情况", "事情"}

// fallbackStopWords 生成兜底关键词时从话题中去掉的词
var fallbackStopWords = []string{"问题", "事件", "情况", "的", "了", "在", "是", "有", "和", "与", "及", "或", "但", "而", "等"}

var keywordSchema = normalizer.Schema{
	"keywords_config": []any{},
	"max_retries":     float64(3),
}

// GenerateKeywords 为话题生成关键词与爬取计划
//
// LLM 调用失败或返回内容不可用时，退化为以话题本身为唯一关键词的计划；
// 返回的计划至少包含一个关键词。
func (s *Spotter) GenerateKeywords(ctx context.Context, req model.ResearchRequest) model.CrawlPlan {
	plan := model.CrawlPlan{Platforms: s.platforms(), Retries: 3}

	topic, _ := json.Marshal(req)
	prompt := strings.NewReplacer(
		"{risk_topic}", string(topic),
		"{topic}", req.Topic,
	).Replace(keywordPrompt)

	resp, err := s.llm.Invoke(ctx, keywordSystemPrompt, prompt, llm.WithJSONMode(), llm.WithTemperature(keywordTemperature))
	if err != nil {
		logger.Log.Errorf("生成关键词失败: %v", err)
		plan.Keywords = []model.KeywordPlan{s.capPlan(req.Topic, defaultPlanItems, defaultPlanComments)}
		return plan
	}

	parsed, ok := normalizer.Repair(resp)
	if !ok {
		logger.Log.Warnf("关键词结果无法解析，使用话题作为关键词")
		plan.Keywords = []model.KeywordPlan{s.capPlan(req.Topic, defaultPlanItems, defaultPlanComments)}
		return plan
	}
	parsed = normalizer.CoerceSchema(parsed, keywordSchema)
	if n, ok := normalizer.Int(parsed, "max_retries"); ok && n > 0 {
		plan.Retries = n
	}

	entries := normalizer.Maps(parsed, "keywords_config")
	if len(entries) == 0 {
		entries = normalizer.Maps(parsed, normalizer.ItemsKey)
	}
	seen := map[string]struct{}{}
	for _, e := range entries {
		kw := strings.TrimSpace(normalizer.String(e, "keyword", ""))
		if !AcceptKeyword(kw, req.Topic) {
			logger.Log.Warnf("过滤掉不相关的关键词: %q (原话题: %s)", kw, req.Topic)
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}

		items, _ := normalizer.Int(e, "max_video_count")
		comments, _ := normalizer.Int(e, "max_comment_count")
		plan.Keywords = append(plan.Keywords, s.capPlan(kw, items, comments))
	}

	if len(plan.Keywords) == 0 {
		kw := FallbackKeyword(req.Topic)
		logger.Log.Warnf("所有生成的关键词都被过滤，使用话题核心部分作为关键词: %s", kw)
		plan.Keywords = []model.KeywordPlan{s.capPlan(kw, 0, 0)}
	}
	return plan
}

func (s *Spotter) capPlan(keyword string, items, comments int) model.KeywordPlan {
	if items <= 0 || items > s.opts.MaxItems {
		items = s.opts.MaxItems
	}
	if comments <= 0 || comments > s.opts.MaxComments {
		comments = s.opts.MaxComments
	}
	return model.KeywordPlan{Keyword: keyword, MaxVideoCount: items, MaxCommentCount: comments}
}

// AcceptKeyword 关键词过滤：非空、长度 2-20、不含停用词且与话题相关
func AcceptKeyword(keyword, topic string) bool {
	n := utf8.RuneCountInString(keyword)
	if n < minKeywordLen || n > maxKeywordLen {
		return false
	}
	if hasStopword(keyword) {
		return false
	}
	return IsKeywordRelevant(keyword, topic)
}

// IsKeywordRelevant 判断关键词与原话题是否高度相关
//
// 满足任一条件即相关：
//  1. 关键词等于话题或是话题的子串
//  2. 话题是关键词的子串
//  3. 关键词包含话题中某段 2-4 个字符的连续片段
//  4. 去掉空白和标点后，关键词包含话题中某段 3 个字符的连续片段
//
// 包含停用词的关键词一律视为无关。
func IsKeywordRelevant(keyword, topic string) bool {
	if hasStopword(keyword) {
		return false
	}
	kw, tp := strings.TrimSpace(keyword), strings.TrimSpace(topic)
	if kw == "" || tp == "" {
		return false
	}
	if strings.Contains(tp, kw) || strings.Contains(kw, tp) {
		return true
	}

	runes := []rune(tp)
	if len(runes) >= 2 && utf8.RuneCountInString(kw) >= 2 {
		for i := 0; i < len(runes)-1; i++ {
			for size := 2; size <= 4 && i+size <= len(runes); size++ {
				if strings.Contains(kw, string(runes[i:i+size])) {
					return true
				}
			}
		}
	}

	kwClean, tpClean := clean(kw), []rune(clean(tp))
	if utf8.RuneCountInString(kwClean) >= 3 && len(tpClean) >= 3 {
		for i := 0; i+3 <= len(tpClean); i++ {
			if strings.Contains(kwClean, string(tpClean[i:i+3])) {
				return true
			}
		}
	}
	return false
}

// FallbackKeyword 由话题本身生成兜底关键词
//
// 去掉停用词后取前 10 个字符，剩余不足 2 个字符时取话题前 10 个字符。
func FallbackKeyword(topic string) string {
	core := strings.TrimSpace(topic)
	for _, w := range fallbackStopWords {
		core = strings.ReplaceAll(core, w, "")
	}
	core = clean(core)
	if utf8.RuneCountInString(core) < minKeywordLen {
		core = strings.TrimSpace(topic)
	}
	return prefix(core, 10)
}

func hasStopword(s string) bool {
	s = strings.ToLower(s)
	for _, w := range stoplist {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// clean 去掉空白与标点
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
