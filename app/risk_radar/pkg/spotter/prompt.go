package spotter

const (
	keywordTemperature   = 0.1
	subReportTemperature = 0.3
	finalTemperature     = 0.1
)

const keywordSystemPrompt = "你是一个专业的舆情分析助手，擅长从复杂话题中提取关键信息并制定搜索策略。请严格按照指定格式输出JSON结果。"

const keywordPrompt = `请为以下风险话题制定视频与评论检索计划。

## 风险话题
{risk_topic}

## 要求
1. 生成的关键词必须直接来自原话题，或者是原话题的核心组成部分
2. 只生成与原话题高度相关的关键词，避免无关或弱相关的扩展关键词
3. 关键词数量控制在 3-5 个
4. 原话题是 '{topic}'，所有关键词都必须紧密围绕这个话题
5. 优先考虑可能包含负面舆情的词汇
6. 每个关键词最多检索 5 条内容，每条内容最多 15 条评论

## 输出格式
{
    "keywords_config": [
        {"keyword": "关键词", "max_video_count": 5, "max_comment_count": 15}
    ],
    "max_retries": 3
}`

const subReportSystemPrompt = "你是一个专业的舆情分析师，请基于爬取的内容，深入分析话题的发展趋势、公众情绪和潜在风险。请严格按照指定格式输出JSON结果。"

const subReportPrompt = `请分析以下关于话题'{topic}'的爬取内容：
关键词: {keyword}
平台: {platforms}
内容数量: {content_count}
评论数量: {comment_count}

话题详情: {risk_topic}

详细内容:
{items}

请生成一份分析报告，重点关注：
1. 摘要：简要概括爬取内容的主要内容和范围
2. 关键发现：识别出的重要信息、热点讨论和趋势
3. 情绪分析：整体情绪倾向，包括正面/负面/中性比例
4. 风险评估：风险等级只能是"低"、"中"、"高"、"极高"之一，并说明风险因素
5. 趋势预测：预测话题的发展趋势
6. 建议措施：具体、可操作的建议
7. 置信度评分：0-1

特别要求：
- 提高风险预警阈值，避免将正常内容误判为风险
- 严格基于事实进行分析，只将有明确证据支持的内容标记为风险

请使用以下格式输出：
{"summary": "", "key_findings": [], "sentiment_analysis": {"positive": 0, "neutral": 0, "negative": 0}, "risk_assessment": {"level": "", "factors": []}, "trend_prediction": "", "recommendations": [], "confidence_score": 0.5}`

const finalSystemPrompt = "你是一个专业的舆情分析专家，擅长综合多个小报告生成最终的分析报告。请严格按照指定格式输出JSON结果，提高预警阈值，只关注真正可能存在风险的内容。"

const finalPrompt = `请根据以下多个关键词的小报告，综合生成一份最终的舆情分析报告。

## 风险话题信息
{risk_topic}

## 小报告列表
{sub_reports}

## 重要视频来源
{important_videos}

## 分析要求
1. 综合所有小报告的关键发现，避免重复
2. 对整个话题的风险等级进行综合评估
3. 分析整体情绪倾向
4. 预测话题的发展趋势
5. 提供具体、可操作的建议
6. 对分析结果的可信度进行评分（0-1）

## 输出格式
{
    "summary": "报告摘要",
    "key_findings": ["发现1", "发现2"],
    "sentiment_analysis": {"positive": 0.0, "neutral": 0.0, "negative": 0.0},
    "risk_assessment": {"level": "低/中/高/极高", "factors": ["因素1", "因素2"]},
    "trend_prediction": "趋势预测",
    "recommendations": ["建议1", "建议2"],
    "confidence_score": 0.0
}`
