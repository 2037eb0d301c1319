// Package alert 汇总决策与深度调研结果，生成并保存舆情预警
package alert

import (
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

const (
	hotOpinionCount  = 3
	hotOpinionLength = 100
)

// Digest 合并多个话题的调研结果
//
// results 为空时返回 nil；没有任何成功的结果时返回 Success 为 false 的摘要。
func Digest(results []model.ResearchResult) *model.ResearchDigest {
	if len(results) == 0 {
		return nil
	}

	var (
		findings, factors []string
		stats             = model.DigestStats{TotalTopics: len(results)}
		high, medium      int
	)
	for _, r := range results {
		if r.Status != model.StatusSuccess || r.Report == nil {
			continue
		}
		stats.SuccessfulAnalyses++
		findings = append(findings, r.Report.KeyFindings...)
		factors = append(factors, r.Report.RiskAssessment.Factors...)
		stats.TotalDataCount += r.Statistics.TotalItems
		stats.TotalCommentCount += r.Statistics.TotalComments

		if lvl, ok := model.ParseLevel(r.Report.RiskAssessment.Level); ok {
			switch lvl {
			case model.LevelHigh:
				high++
			case model.LevelMedium:
				medium++
			}
		}
	}

	if stats.SuccessfulAnalyses == 0 {
		return &model.ResearchDigest{Success: false, RiskLevel: "未知", Stats: stats}
	}

	findings = Dedupe(findings)
	factors = Dedupe(factors)
	stats.KeyFindingsCount = len(findings)
	stats.RiskFactorsCount = len(factors)

	level := model.LevelLow
	switch {
	case high > 0:
		level = model.LevelHigh
	case medium*2 > len(results):
		level = model.LevelMedium
	}

	if len(factors) == 0 {
		switch {
		case high > 0:
			factors = []string{"深度调研发现高风险内容"}
		case medium > 0:
			factors = []string{"深度调研发现中等风险内容"}
		}
	}

	opinions := []model.HotOpinion{}
	for i, r := range results {
		if i >= hotOpinionCount {
			break
		}
		if r.Status != model.StatusSuccess || r.Report == nil {
			continue
		}
		opinions = append(opinions, model.HotOpinion{
			Topic:     r.Topic,
			Summary:   truncate(r.Report.Summary, hotOpinionLength),
			RiskLevel: nonEmpty(r.Report.RiskAssessment.Level, "未知"),
		})
	}

	return &model.ResearchDigest{
		Success:        true,
		RiskLevel:      level.Label(),
		RiskFactors:    nonNil(factors),
		KeyFindings:    nonNil(findings),
		Stats:          stats,
		HotOpinions:    opinions,
		Recommendation: researchRecommendation(level),
	}
}

func researchRecommendation(level model.Level) string {
	switch level {
	case model.LevelHigh:
		return "建议立即采取危机公关措施：\n" +
			"1. 密切监控舆情发展，每小时更新一次数据\n" +
			"2. 准备官方声明，回应关键质疑点\n" +
			"3. 考虑联系相关平台，请求协助管理不当言论\n" +
			"4. 启动内部调查，核实相关情况"
	case model.LevelMedium:
		return "建议加强监控并准备应对：\n" +
			"1. 每4小时更新一次舆情数据\n" +
			"2. 准备回应话术，但暂不主动发布\n" +
			"3. 关注意见领袖的观点动向\n" +
			"4. 评估是否需要采取进一步行动"
	default:
		return "建议保持常规监控：\n" +
			"1. 按照正常频率监控舆情\n" +
			"2. 记录相关话题的发展趋势\n" +
			"3. 定期汇总分析，形成报告"
	}
}

// Dedupe 去重并保持首次出现的顺序，忽略空字符串
func Dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
