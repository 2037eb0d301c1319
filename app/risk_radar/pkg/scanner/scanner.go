// Package scanner 热点扫描阶段：抓取热榜、识别风险话题并写入情报站
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/hotlist"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/normalizer"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/store"
)

const (
	stage       = "scanner"
	temperature = 0.2
	// historyWindow 提示词中附带的历史热榜条数
	historyWindow = 10
)

var reportSchema = normalizer.Schema{
	"summary":           "风险分析报告（部分字段缺失）",
	normalizer.ItemsKey: []any{},
}

// Options 扫描参数
type Options struct {
	URLs []string
	// Delay 相邻来源之间的等待时间
	Delay time.Duration
	// MemoryLoadCap 启动时从记忆文件加载的条数
	MemoryLoadCap int
	// MemorySaveCap 内存与记忆文件中保留的最大条数
	MemorySaveCap int
}

// Scanner 热点扫描器
type Scanner struct {
	crawler      hotlist.Crawler
	llm          llm.Invoker
	intelligence *store.Bounded[model.RiskItem]
	memoryStore  *store.Bounded[model.RawTopic]
	opts         Options

	mu     sync.Mutex
	memory []model.RawTopic
	now    func() time.Time
}

// New 创建扫描器并加载历史记忆
func New(ctx context.Context, crawler hotlist.Crawler, invoker llm.Invoker,
	intelligence *store.Bounded[model.RiskItem], memory *store.Bounded[model.RawTopic], opts Options) *Scanner {
	s := &Scanner{
		crawler:      crawler,
		llm:          invoker,
		intelligence: intelligence,
		memoryStore:  memory,
		opts:         opts,
		now:          time.Now,
	}

	if memory != nil {
		recent, err := memory.Recent(ctx, opts.MemoryLoadCap)
		if err != nil {
			logger.Log.Warnf("加载扫描记忆失败: %v", err)
		}
		s.memory = recent
	}
	return s
}

// sourceReport 单个来源的分析结果
type sourceReport struct {
	summary string
	items   []model.RiskItem
}

// RunOnce 执行一次完整的扫描：逐个来源抓取、分析、写入情报站
//
// 单个来源的抓取或分析失败不会中断本轮扫描，返回值永远不为 nil。
func (s *Scanner) RunOnce(ctx context.Context) *model.ScanReport {
	now := s.now()
	report := &model.ScanReport{
		ScanID:    fmt.Sprintf("HH-%d", now.Unix()),
		Timestamp: now.Format(model.TimeLayout),
		Topics:    []model.RiskItem{},
		PerSource: map[string]int{},
	}

	var summaries []string
	for i, url := range s.opts.URLs {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && s.opts.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.opts.Delay):
			}
		}

		raw, err := s.crawler.Crawl(ctx, url)
		if err != nil {
			logger.Log.Warnf("热榜抓取失败 %s: %v", url, err)
			metrics.StageRun("hotlist", model.StatusError)
			continue
		}
		if len(raw) == 0 {
			logger.Log.Warnf("热榜 %s 无数据", url)
			continue
		}
		metrics.StageRun("hotlist", model.StatusSuccess)

		sr := s.analyze(ctx, url, raw)
		if len(sr.items) > 0 {
			if _, err := s.intelligence.Append(ctx, sr.items...); err != nil {
				logger.Log.Errorf("写入情报站失败: %v", err)
			} else {
				logger.Log.Infof("来源 %s 发现 %d 个潜在风险，已写入情报站", url, len(sr.items))
			}
		} else {
			logger.Log.Infof("来源 %s 未发现明显风险话题", url)
		}

		report.ReportCount++
		report.PerSource[url] = len(sr.items)
		report.Topics = append(report.Topics, sr.items...)
		if sr.summary != "" {
			summaries = append(summaries, sr.summary)
		}

		s.remember(raw)
	}

	s.saveMemory(ctx)

	report.TotalRiskItems = len(report.Topics)
	if report.ReportCount > 0 {
		report.Summary = "综合舆情分析: " + strings.Join(summaries, "\n")
	} else {
		report.Summary = "未获取到有效的风险报告"
	}

	status := model.StatusSuccess
	if report.ReportCount == 0 && len(s.opts.URLs) > 0 {
		status = model.StatusError
	}
	metrics.StageRun(stage, status)
	return report
}

// analyze 调用 LLM 分析单个来源，失败时返回哨兵报告
func (s *Scanner) analyze(ctx context.Context, url string, raw []model.RawTopic) sourceReport {
	crawled, _ := json.Marshal(raw)
	history, _ := json.Marshal(s.history())

	prompt := strings.NewReplacer(
		"{crawled_data}", string(crawled),
		"{historical_data}", string(history),
	).Replace(scanPrompt)

	resp, err := s.llm.Invoke(ctx, systemPrompt, prompt, llm.WithJSONMode(), llm.WithTemperature(temperature))
	if err != nil {
		logger.Log.Errorf("来源 %s 的 LLM 分析失败: %v", url, err)
		return s.sentinel(url)
	}

	parsed := reportSchema.Normalize(resp)
	ts := s.now().Format(model.TimeLayout)

	candidates := normalizer.Maps(parsed, normalizer.ItemsKey)
	items := make([]model.RiskItem, 0, len(candidates))
	for _, c := range candidates {
		item, ok := normalizer.ValidateItem(c)
		if !ok {
			logger.Log.Warnf("丢弃缺乏依据的风险条目: %v", c["topic"])
			continue
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.SourceURL == "" {
			item.SourceURL = url
		}
		if item.Timestamp == "" {
			item.Timestamp = ts
		}
		items = append(items, item)
	}
	metrics.Dropped(stage, len(candidates)-len(items))

	return sourceReport{
		summary: normalizer.String(parsed, "summary", ""),
		items:   items,
	}
}

func (s *Scanner) sentinel(url string) sourceReport {
	return sourceReport{
		summary: "分析失败，系统生成默认报告",
		items: []model.RiskItem{{
			ID:                 uuid.NewString(),
			Topic:              model.FailedTopic,
			Platform:           "未知",
			Hotness:            "0",
			RiskLevel:          1,
			Category:           "系统错误",
			Reason:             "LLM分析过程中遇到问题，已生成默认报告",
			FurtherInvestigate: true,
			SourceURL:          url,
			Timestamp:          s.now().Format(model.TimeLayout),
		}},
	}
}

func (s *Scanner) history() []model.RawTopic {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.memory) <= historyWindow {
		return append([]model.RawTopic{}, s.memory...)
	}
	return append([]model.RawTopic{}, s.memory[len(s.memory)-historyWindow:]...)
}

func (s *Scanner) remember(raw []model.RawTopic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = append(s.memory, raw...)
	if n := s.opts.MemorySaveCap; n > 0 && len(s.memory) > n {
		s.memory = append([]model.RawTopic(nil), s.memory[len(s.memory)-n:]...)
	}
}

func (s *Scanner) saveMemory(ctx context.Context) {
	if s.memoryStore == nil {
		return
	}
	s.mu.Lock()
	snapshot := append([]model.RawTopic(nil), s.memory...)
	s.mu.Unlock()

	if _, err := s.memoryStore.Replace(ctx, snapshot); err != nil {
		logger.Log.Warnf("保存扫描记忆失败: %v", err)
	}
}
