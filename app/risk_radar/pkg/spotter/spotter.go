// Package spotter 深度调研阶段：按话题检索视频与评论并生成调研报告
package spotter

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/media"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/store"
)

const stage = "spotter"

// ErrNoCrawler 未配置任何媒体检索器
var ErrNoCrawler = errors.New("未配置媒体检索器")

// MemoryEntry 调研记忆
type MemoryEntry struct {
	Timestamp  string   `json:"timestamp"`
	Topic      string   `json:"topic"`
	Keywords   []string `json:"keywords"`
	TotalItems int      `json:"total_items"`
	RiskLevel  string   `json:"risk_level"`
}

// Options 单个关键词的检索上限
type Options struct {
	MaxItems    int
	MaxComments int
}

// Spotter 深度调研器
type Spotter struct {
	llm      llm.Invoker
	crawlers []media.Crawler
	memory   *store.Bounded[MemoryEntry]
	archive  *store.Archive
	opts     Options
	now      func() time.Time
}

// New 创建深度调研器，memory 与 archive 可为空
func New(invoker llm.Invoker, crawlers []media.Crawler, memory *store.Bounded[MemoryEntry], archive *store.Archive, opts Options) *Spotter {
	limits := media.Limits{MaxItems: opts.MaxItems, MaxComments: opts.MaxComments}.Clamp()
	return &Spotter{
		llm:      invoker,
		crawlers: crawlers,
		memory:   memory,
		archive:  archive,
		opts:     Options{MaxItems: limits.MaxItems, MaxComments: limits.MaxComments},
		now:      time.Now,
	}
}

func (s *Spotter) platforms() []string {
	out := make([]string, 0, len(s.crawlers))
	for _, c := range s.crawlers {
		out = append(out, c.Platform())
	}
	return out
}

// researchArchive 归档的完整调研记录
type researchArchive struct {
	RiskTopic model.ResearchRequest      `json:"risk_topic"`
	Error     string                     `json:"error,omitempty"`
	Plan      *model.CrawlPlan           `json:"crawl_config,omitempty"`
	SubReport []model.SubReport          `json:"sub_reports,omitempty"`
	Analysis  *model.FinalResearchReport `json:"analysis"`
	Important []model.ImportantVideo     `json:"important_videos,omitempty"`
}

// ProcessTopic 对单个话题执行完整的深度调研
//
// 关键词逐个处理：检索完一个关键词立即生成小报告，再处理下一个。
// 单个平台的检索失败记录在小报告的 CrawlErrors 中，不影响其他关键词。
func (s *Spotter) ProcessTopic(ctx context.Context, req model.ResearchRequest) *model.ResearchResult {
	start := s.now()
	logger.Log.Infof("开始处理话题: %s", req.Topic)

	if len(s.crawlers) == 0 {
		return s.fail(req, start, ErrNoCrawler)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(req, start, err)
	}

	plan := s.GenerateKeywords(ctx, req)
	stats := model.ResearchStatistics{
		TotalPlatforms: len(plan.Platforms),
		TotalKeywords:  len(plan.Keywords),
	}

	subs := make([]model.SubReport, 0, len(plan.Keywords))
	var candidates []model.ImportantVideo
	for _, kw := range plan.Keywords {
		if ctx.Err() != nil {
			logger.Log.Warnf("话题 %s 的调研被取消，已完成 %d 个关键词", req.Topic, len(subs))
			break
		}
		logger.Log.Infof("处理关键词: %s，计划检索 %d 条内容，每条 %d 条评论", kw.Keyword, kw.MaxVideoCount, kw.MaxCommentCount)

		var bundles []*model.MediaBundle
		crawlErrs := map[string]string{}
		for _, c := range s.crawlers {
			b, err := c.Search(ctx, kw.Keyword, media.Limits{MaxItems: kw.MaxVideoCount, MaxComments: kw.MaxCommentCount})
			if err != nil {
				logger.Log.Errorf("%s 平台检索关键词 %s 失败: %v", c.Platform(), kw.Keyword, err)
				crawlErrs[c.Platform()] = err.Error()
				continue
			}
			bundles = append(bundles, b)
			stats.TotalItems += b.TotalItems
			stats.TotalComments += b.TotalComments
			candidates = append(candidates, collectImportant(kw.Keyword, b)...)
		}

		sub := s.analyzeKeyword(ctx, req, kw, bundles)
		if len(crawlErrs) > 0 {
			sub.CrawlErrors = crawlErrs
		}
		subs = append(subs, sub)
	}
	if stats.TotalItems == 0 {
		logger.Log.Warnf("话题 %s 未检索到任何内容", req.Topic)
	}

	important := RankImportant(candidates)
	report := s.synthesize(ctx, req, subs, important)
	logger.Log.Infof("话题 %s 最终报告生成完成，风险等级: %s，内容 %d 条，评论 %d 条",
		req.Topic, report.RiskAssessment.Level, stats.TotalItems, stats.TotalComments)

	keywords := make([]string, 0, len(plan.Keywords))
	for _, kw := range plan.Keywords {
		keywords = append(keywords, kw.Keyword)
	}
	s.remember(context.WithoutCancel(ctx), MemoryEntry{
		Timestamp:  start.Format(model.TimeLayout),
		Topic:      req.Topic,
		Keywords:   keywords,
		TotalItems: stats.TotalItems,
		RiskLevel:  report.RiskAssessment.Level,
	})

	result := &model.ResearchResult{
		Status:          model.StatusSuccess,
		Topic:           req.Topic,
		Plan:            &plan,
		Report:          report,
		SubReports:      subs,
		ImportantVideos: important,
		Statistics:      stats,
		Timestamp:       report.Timestamp,
	}
	result.ReportPath = s.save("research", researchArchive{
		RiskTopic: req,
		Plan:      &plan,
		SubReport: subs,
		Analysis:  report,
		Important: important,
	})
	result.ExecutionTime = seconds(s.now().Sub(start))

	metrics.StageRun(stage, model.StatusSuccess)
	logger.Log.Infof("话题 %s 处理完成，总耗时 %.2f 秒", req.Topic, result.ExecutionTime)
	return result
}

func (s *Spotter) fail(req model.ResearchRequest, start time.Time, err error) *model.ResearchResult {
	logger.Log.Errorf("处理话题 %s 时出错: %v", req.Topic, err)
	metrics.StageRun(stage, model.StatusError)

	report := &model.FinalResearchReport{
		SourceTopic: req.Topic,
		Timestamp:   s.now().Format(model.TimeLayout),
	}
	fill(report, errorBody(req.Topic, err))

	result := &model.ResearchResult{
		Status:    model.StatusError,
		Topic:     req.Topic,
		Report:    report,
		Error:     err.Error(),
		Timestamp: report.Timestamp,
	}
	result.ReportPath = s.save("research_error", researchArchive{
		RiskTopic: req,
		Error:     err.Error(),
		Analysis:  report,
	})
	result.ExecutionTime = seconds(s.now().Sub(start))
	return result
}

func (s *Spotter) save(prefix string, v researchArchive) string {
	if s.archive == nil {
		return ""
	}
	path, err := s.archive.Save(prefix, v)
	if err != nil {
		logger.Log.Errorf("保存调研报告失败: %v", err)
		return ""
	}
	logger.Log.Infof("调研报告已保存到: %s", path)
	return path
}

func (s *Spotter) remember(ctx context.Context, entry MemoryEntry) {
	if s.memory == nil {
		return
	}
	if _, err := s.memory.Append(ctx, entry); err != nil {
		logger.Log.Errorf("调研记忆保存失败: %v", err)
	}
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
