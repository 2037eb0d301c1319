package alert

import (
	"fmt"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// Recommendations 生成面向用户的建议：逐话题建议、通用建议、风险因素建议
func Recommendations(level model.Level, factors, topics []string) []string {
	out := make([]string, 0, len(topics)+2)
	for _, topic := range topics {
		out = append(out, fmt.Sprintf("针对话题 '%s' 的建议：\n"+
			"1. 密切关注该话题在各平台的传播趋势\n"+
			"2. 收集并分析相关评论，了解公众真实态度\n"+
			"3. 准备针对性的回应策略，根据舆情发展及时调整\n"+
			"4. 考虑联系相关平台，请求协助管理不当言论（如风险较高）", topic))
	}

	switch level {
	case model.LevelHigh:
		out = append(out, "通用建议：\n"+
			"1. 立即成立危机公关小组，启动应急预案\n"+
			"2. 准备官方声明，明确回应公众关切\n"+
			"3. 主动联系权威媒体，传递正面信息\n"+
			"4. 安排专人监控舆情，每小时更新一次数据\n"+
			"5. 考虑采取法律手段，维护自身合法权益（如涉及恶意攻击）")
	case model.LevelMedium:
		out = append(out, "通用建议：\n"+
			"1. 加强监控力度，每4小时更新一次舆情数据\n"+
			"2. 准备回应话术，暂不主动发布\n"+
			"3. 关注意见领袖的观点动向\n"+
			"4. 定期汇总分析，评估风险变化趋势\n"+
			"5. 考虑邀请第三方机构进行调查，提供客观报告")
	default:
		out = append(out, "通用建议：\n"+
			"1. 保持常规监控频率，每日汇总分析\n"+
			"2. 记录相关话题的发展趋势\n"+
			"3. 定期生成分析报告，供决策参考\n"+
			"4. 关注同类话题的发展情况，汲取经验教训\n"+
			"5. 持续优化舆情监测系统，提高预警准确性")
	}

	if len(factors) > 0 {
		out = append(out, fmt.Sprintf("风险因素针对性建议：\n"+
			"1. 针对%d项风险因素，逐一制定应对措施\n"+
			"2. 重点关注负面评论比例较高的风险点\n"+
			"3. 分析风险因素的关联性，制定综合解决方案\n"+
			"4. 定期评估应对措施的有效性，及时调整", len(factors)))
	}
	return out
}

// MonitoringSuggestion 按风险等级给出监控建议
func MonitoringSuggestion(level model.Level) string {
	switch level {
	case model.LevelHigh:
		return "监控建议：立即启动7x24小时专人监控，设置每小时自动检测机制，重点关注意见领袖言论和话题扩散速度。"
	case model.LevelMedium:
		return "监控建议：启动12小时重点监控，每4小时更新一次数据，关注话题热度变化趋势和主流媒体报道。"
	default:
		return "监控建议：保持日常监控频率，每日汇总分析报告，关注话题自然演化。"
	}
}
