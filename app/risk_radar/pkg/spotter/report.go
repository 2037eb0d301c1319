package spotter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/alert"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/normalizer"
)

const (
	// 送入小报告提示词的数据上限
	maxPromptItems    = 10
	maxPromptComments = 20

	// emptyEvidenceConfidence 没有任何爬取数据时最终报告置信度的上限
	emptyEvidenceConfidence = 0.2

	levelUnknown = "unknown"
)

var subReportSchema = normalizer.Schema{
	"summary":            "分析报告摘要",
	"key_findings":       []any{},
	"sentiment_analysis": map[string]any{"positive": 0.0, "neutral": 0.0, "negative": 0.0},
	"risk_assessment":    map[string]any{"level": "medium", "factors": []any{}},
	"trend_prediction":   "暂无趋势预测",
	"recommendations":    []any{},
	"confidence_score":   0.5,
}

var finalSchema = normalizer.Schema{
	"summary":            "未生成摘要",
	"key_findings":       []any{},
	"sentiment_analysis": map[string]any{"positive": 0.0, "neutral": 0.0, "negative": 0.0},
	"risk_assessment":    map[string]any{"level": levelUnknown, "factors": []any{}},
	"trend_prediction":   "无法预测",
	"recommendations":    []any{},
	"confidence_score":   0.5,
}

// reportBody 小报告与最终报告共有的分析字段
type reportBody struct {
	Summary         string
	KeyFindings     []string
	Sentiment       model.Sentiment
	Risk            model.RiskAssessment
	Trend           string
	Recommendations []string
	Confidence      float64
}

func parseBody(m map[string]any, schema normalizer.Schema) reportBody {
	m = normalizer.CoerceSchema(m, schema)
	sentiment := normalizer.Map(m, "sentiment_analysis")
	risk := normalizer.Map(m, "risk_assessment")
	defRisk := schema["risk_assessment"].(map[string]any)

	return reportBody{
		Summary:     normalizer.String(m, "summary", ""),
		KeyFindings: normalizer.Strings(m, "key_findings"),
		Sentiment: model.Sentiment{
			Positive: normalizer.Clamp(normalizer.Float(sentiment, "positive", 0), 0, 1),
			Neutral:  normalizer.Clamp(normalizer.Float(sentiment, "neutral", 0), 0, 1),
			Negative: normalizer.Clamp(normalizer.Float(sentiment, "negative", 0), 0, 1),
		},
		Risk: model.RiskAssessment{
			Level:   normalizer.String(risk, "level", defRisk["level"].(string)),
			Factors: normalizer.Strings(risk, "factors"),
		},
		Trend:           normalizer.String(m, "trend_prediction", ""),
		Recommendations: normalizer.Strings(m, "recommendations"),
		Confidence:      normalizer.Clamp(normalizer.Float(m, "confidence_score", 0.5), 0, 1),
	}
}

// promptItem 送入提示词的精简内容
type promptItem struct {
	Platform string   `json:"platform"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Author   string   `json:"author"`
	Likes    int      `json:"likes"`
	Comments []string `json:"comments"`
}

// preprocess 提取提示词所需字段并限制数据量，计数基于全部数据
func preprocess(bundles []*model.MediaBundle) (items []promptItem, contentCount, commentCount int) {
	items = []promptItem{}
	for _, b := range bundles {
		for _, it := range b.Items {
			contentCount++
			commentCount += len(it.Comments)

			comments := make([]string, 0, min(len(it.Comments), maxPromptComments))
			for _, c := range it.Comments[:min(len(it.Comments), maxPromptComments)] {
				comments = append(comments, c.Content)
			}
			author := it.Author
			if author == "" {
				author = "anonymous"
			}
			items = append(items, promptItem{
				Platform: b.Platform,
				Title:    it.Title,
				Content:  it.Content,
				Author:   author,
				Likes:    it.Likes,
				Comments: comments,
			})
		}
	}
	if len(items) > maxPromptItems {
		items = items[:maxPromptItems]
	}
	return items, contentCount, commentCount
}

// analyzeKeyword 为单个关键词的爬取结果生成小报告
func (s *Spotter) analyzeKeyword(ctx context.Context, req model.ResearchRequest, plan model.KeywordPlan, bundles []*model.MediaBundle) model.SubReport {
	items, contentCount, commentCount := preprocess(bundles)

	platforms := make([]string, 0, len(bundles))
	for _, b := range bundles {
		platforms = append(platforms, b.Platform)
	}
	topic, _ := json.Marshal(req)
	data, _ := json.MarshalIndent(items, "", "  ")

	prompt := strings.NewReplacer(
		"{topic}", req.Topic,
		"{keyword}", plan.Keyword,
		"{platforms}", strings.Join(platforms, ", "),
		"{content_count}", strconv.Itoa(contentCount),
		"{comment_count}", strconv.Itoa(commentCount),
		"{risk_topic}", string(topic),
		"{items}", string(data),
	).Replace(subReportPrompt)

	var body reportBody
	resp, err := s.llm.Invoke(ctx, subReportSystemPrompt, prompt, llm.WithJSONMode(), llm.WithTemperature(subReportTemperature))
	if err != nil {
		logger.Log.Errorf("分析关键词 %s 失败: %v", plan.Keyword, err)
		body = errorBody(req.Topic, err)
	} else {
		body = parseBody(subReportSchema.Normalize(resp), subReportSchema)
	}

	logger.Log.Infof("关键词 %s 分析完成，风险等级: %s，置信度: %.2f", plan.Keyword, body.Risk.Level, body.Confidence)
	return model.SubReport{
		Keyword:         plan.Keyword,
		Plan:            plan,
		Summary:         body.Summary,
		KeyFindings:     body.KeyFindings,
		Sentiment:       body.Sentiment,
		RiskAssessment:  body.Risk,
		TrendPrediction: body.Trend,
		Recommendations: body.Recommendations,
		ConfidenceScore: body.Confidence,
		DataCount:       contentCount,
		CommentCount:    commentCount,
	}
}

// synthesize 汇总所有小报告生成最终报告
func (s *Spotter) synthesize(ctx context.Context, req model.ResearchRequest, subs []model.SubReport, important []model.ImportantVideo) *model.FinalResearchReport {
	report := &model.FinalResearchReport{
		SourceTopic:     req.Topic,
		ImportantVideos: important,
		Timestamp:       s.now().Format(model.TimeLayout),
	}
	var findings, factors []string
	for _, sub := range subs {
		report.DataCount += sub.DataCount
		report.CommentCount += sub.CommentCount
		findings = append(findings, sub.KeyFindings...)
		factors = append(factors, sub.RiskAssessment.Factors...)
	}
	findings, factors = alert.Dedupe(findings), alert.Dedupe(factors)

	if len(subs) == 0 {
		fill(report, reportBody{
			Summary:         "未生成任何小报告，无法汇总分析",
			KeyFindings:     []string{},
			Risk:            model.RiskAssessment{Level: levelUnknown, Factors: []string{"未生成任何小报告"}},
			Trend:           "无法预测",
			Recommendations: []string{"请检查爬虫是否正常工作"},
		})
		return report
	}

	topic, _ := json.Marshal(req)
	subData, _ := json.Marshal(subs)
	videoData, _ := json.Marshal(important)
	prompt := strings.NewReplacer(
		"{risk_topic}", string(topic),
		"{sub_reports}", string(subData),
		"{important_videos}", string(videoData),
	).Replace(finalPrompt)

	resp, err := s.llm.Invoke(ctx, finalSystemPrompt, prompt, llm.WithJSONMode(), llm.WithTemperature(finalTemperature))
	var parsed map[string]any
	ok := false
	if err == nil {
		parsed, ok = normalizer.Repair(resp)
	}
	if !ok {
		if err == nil {
			err = fmt.Errorf("unparseable final report")
		}
		logger.Log.Errorf("汇总小报告失败: %v", err)
		if len(factors) == 0 {
			factors = []string{"汇总报告生成失败"}
		}
		fill(report, reportBody{
			Summary:         "汇总报告生成失败，使用默认报告",
			KeyFindings:     findings,
			Risk:            model.RiskAssessment{Level: levelUnknown, Factors: factors},
			Trend:           "无法预测",
			Recommendations: []string{"请检查LLM服务是否可用"},
		})
		return report
	}

	body := parseBody(parsed, finalSchema)
	body.KeyFindings = alert.Dedupe(append(body.KeyFindings, findings...))
	body.Risk.Factors = alert.Dedupe(append(body.Risk.Factors, factors...))
	if report.DataCount == 0 && body.Confidence > emptyEvidenceConfidence {
		body.Confidence = emptyEvidenceConfidence
	}
	fill(report, body)
	return report
}

func fill(r *model.FinalResearchReport, b reportBody) {
	r.Summary = b.Summary
	r.KeyFindings = b.KeyFindings
	r.Sentiment = b.Sentiment
	r.RiskAssessment = b.Risk
	r.TrendPrediction = b.Trend
	r.Recommendations = b.Recommendations
	r.ConfidenceScore = b.Confidence
}

func errorBody(topic string, err error) reportBody {
	return reportBody{
		Summary:     fmt.Sprintf("对话题 '%s' 的分析失败", topic),
		KeyFindings: []string{"分析过程中出现错误"},
		Risk: model.RiskAssessment{
			Level:   levelUnknown,
			Factors: []string{"分析失败: " + err.Error()},
		},
		Trend:           "无法预测",
		Recommendations: []string{"请检查爬虫是否正常工作", "确认爬取结果格式是否正确", "验证LLM服务是否可用"},
	}
}
