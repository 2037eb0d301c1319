// Package analyzer 风险决策阶段：研判扫描报告、选择深度调研话题并生成预警
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/alert"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/normalizer"
)

const (
	stage       = "analyzer"
	temperature = 0.3
)

var decisionSchema = normalizer.Schema{
	"risk_summary":      "未生成摘要",
	"risk_items":        []any{},
	"global_risk_level": "低",
	"confidence":        0.5,
	"actions": map[string]any{
		"call_vcs": map[string]any{
			"should_call":     false,
			"target_topics":   []any{},
			"search_keywords": []any{},
		},
		"adjust_frequency": map[string]any{"should_adjust": false},
		"trigger_alert":    map[string]any{"should_alert": false, "alert_message": ""},
	},
	"memory_update": map[string]any{"key_risks_to_save": []any{}},
}

// Researcher 深度调研阶段
type Researcher interface {
	ProcessTopic(ctx context.Context, req model.ResearchRequest) *model.ResearchResult
}

// Analysis 一次完整分析流程的结果
type Analysis struct {
	Status   string                 `json:"status"`
	Decision *model.Decision        `json:"decision_result"`
	Research []model.ResearchResult `json:"research_results,omitempty"`
	Digest   *model.ResearchDigest  `json:"research_digest,omitempty"`
	Alert    *model.AlertReport     `json:"alert_report,omitempty"`
}

type historyEntry struct {
	Timestamp       string               `json:"timestamp"`
	GlobalRiskLevel string               `json:"global_risk_level"`
	RiskItems       []model.DecisionItem `json:"risk_items"`
	KeyRisks        []string             `json:"key_risks"`
}

// Analyzer 风险决策引擎
type Analyzer struct {
	llm        llm.Invoker
	researcher Researcher
	aggregator *alert.Aggregator
	historyCap int

	mu      sync.Mutex
	history []historyEntry
	last    *model.Decision
	now     func() time.Time
}

// New 创建决策引擎，researcher 为空时不执行深度调研
func New(invoker llm.Invoker, researcher Researcher, aggregator *alert.Aggregator, historyCap int) *Analyzer {
	if historyCap <= 0 {
		historyCap = 10
	}
	return &Analyzer{
		llm:        invoker,
		researcher: researcher,
		aggregator: aggregator,
		historyCap: historyCap,
		now:        time.Now,
	}
}

// EmptyDecision 无话题时的决策，不调用 LLM
func EmptyDecision() *model.Decision {
	return &model.Decision{
		RiskSummary:     "未发现有效话题，跳过风险分析",
		RiskItems:       []model.DecisionItem{},
		GlobalRiskLevel: model.LevelLow.String(),
		Confidence:      0,
	}
}

// ReceiveHotspotReport 研判一份扫描报告并应用话题选择策略
//
// LLM 调用失败或返回无法解析的内容时，退化为把所有话题视为中风险的决策。
func (a *Analyzer) ReceiveHotspotReport(ctx context.Context, report *model.ScanReport) *model.Decision {
	if report == nil || len(report.Topics) == 0 {
		logger.Log.Info("扫描报告未包含任何话题，跳过风险分析")
		return EmptyDecision()
	}
	logger.Log.Infof("接收到扫描报告 %s，包含 %d 个话题", report.ScanID, len(report.Topics))

	decision, err := a.decide(ctx, report)
	if err != nil {
		logger.Log.Warnf("LLM 决策失败，使用降级决策: %v", err)
		decision = fallbackDecision(report)
		metrics.StageRun(stage, model.StatusError)
	} else {
		metrics.StageRun(stage, model.StatusSuccess)
	}

	Escalate(decision)
	a.remember(decision)

	logger.Log.Infof("分析完成，全局风险等级：%s，风险话题 %d 个", decision.GlobalRiskLevel, len(decision.RiskItems))
	return decision
}

// Escalate 按话题选择策略设置深度调研动作
func Escalate(d *model.Decision) {
	selected := SelectTopics(d.RiskItems)
	if len(selected) == 0 {
		d.Actions.Research = model.ResearchAction{}
		return
	}

	titles := make([]string, 0, len(selected))
	for _, item := range selected {
		titles = append(titles, item.Title)
	}
	d.Actions.Research = model.ResearchAction{
		ShouldCall:     true,
		TargetTopics:   titles,
		SearchKeywords: DeriveKeywords(selected),
	}
}

// RunFullAnalysis 决策、深度调研、生成并保存预警
func (a *Analyzer) RunFullAnalysis(ctx context.Context, report *model.ScanReport) *Analysis {
	if report == nil || len(report.Topics) == 0 {
		return &Analysis{Status: model.StatusSuccess, Decision: EmptyDecision()}
	}

	decision := a.ReceiveHotspotReport(ctx, report)
	out := &Analysis{Status: model.StatusSuccess, Decision: decision}

	if decision.Actions.Research.ShouldCall && a.researcher != nil {
		out.Research = a.research(ctx, decision)
		out.Digest = alert.Digest(out.Research)
		if out.Digest != nil {
			logger.Log.Infof("深度调研完成，综合风险等级：%s，数据 %d 条",
				out.Digest.RiskLevel, out.Digest.Stats.TotalDataCount)
		}
	}

	if a.aggregator != nil {
		out.Alert = a.aggregator.Generate(report, decision, out.Digest)
		if err := a.aggregator.Save(ctx, out.Alert); err != nil {
			logger.Log.Errorf("保存预警失败: %v", err)
		}
	}
	return out
}

// LastDecision 返回最近一次决策
func (a *Analyzer) LastDecision() *model.Decision {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *Analyzer) research(ctx context.Context, d *model.Decision) []model.ResearchResult {
	byTitle := make(map[string]model.DecisionItem, len(d.RiskItems))
	for _, item := range d.RiskItems {
		if _, ok := byTitle[item.Title]; !ok {
			byTitle[item.Title] = item
		}
	}

	results := make([]model.ResearchResult, 0, len(d.Actions.Research.TargetTopics))
	for _, topic := range d.Actions.Research.TargetTopics {
		if ctx.Err() != nil {
			break
		}
		item := byTitle[topic]
		logger.Log.Infof("对话题 [%s] 发起深度调研", topic)
		res := a.researcher.ProcessTopic(ctx, model.ResearchRequest{
			Topic:    topic,
			Reason:   item.Reason,
			Level:    item.Level,
			Priority: priority(item.Level),
		})
		if res != nil {
			results = append(results, *res)
		}
	}
	return results
}

func (a *Analyzer) decide(ctx context.Context, report *model.ScanReport) (*model.Decision, error) {
	scan, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scan report: %w", err)
	}
	history, _ := json.Marshal(a.recentHistory())

	prompt := strings.NewReplacer(
		"{scan_report}", string(scan),
		"{history}", string(history),
	).Replace(decisionPrompt)

	resp, err := a.llm.Invoke(ctx, systemPrompt, prompt, llm.WithJSONMode(), llm.WithTemperature(temperature))
	if err != nil {
		return nil, err
	}
	parsed, ok := normalizer.Repair(resp)
	if !ok {
		return nil, fmt.Errorf("unparseable decision: %.80q", resp)
	}
	return toDecision(normalizer.CoerceSchema(parsed, decisionSchema)), nil
}

func toDecision(m map[string]any) *model.Decision {
	d := &model.Decision{
		RiskSummary: normalizer.String(m, "risk_summary", ""),
		RiskItems:   []model.DecisionItem{},
		Confidence:  normalizer.Clamp(normalizer.Float(m, "confidence", 0.5), 0, 1),
	}

	global := strings.TrimSpace(normalizer.String(m, "global_risk_level", ""))
	level, ok := model.ParseLevel(global)
	if !ok && global != "" {
		logger.Log.Warnf("无法识别的全局风险等级 %q，按低风险处理", global)
	}
	d.GlobalRiskLevel = level.String()

	for _, raw := range normalizer.Maps(m, "risk_items") {
		title := strings.TrimSpace(normalizer.String(raw, "title", ""))
		if title == "" {
			title = strings.TrimSpace(normalizer.String(raw, "topic", ""))
		}
		if title == "" {
			continue
		}
		d.RiskItems = append(d.RiskItems, model.DecisionItem{
			Title:  title,
			Reason: normalizer.String(raw, "reason", ""),
			Level:  normalizer.String(raw, "level", model.LevelLow.Label()),
		})
	}

	actions := normalizer.Map(m, "actions")
	vcs := normalizer.Map(actions, "call_vcs")
	d.Actions.Research.ShouldCall, _ = normalizer.Bool(vcs, "should_call")
	d.Actions.Research.TargetTopics = normalizer.Strings(vcs, "target_topics")
	d.Actions.Research.SearchKeywords = normalizer.Strings(vcs, "search_keywords")

	freq := normalizer.Map(actions, "adjust_frequency")
	d.Actions.AdjustFrequency.ShouldAdjust, _ = normalizer.Bool(freq, "should_adjust")
	d.Actions.AdjustFrequency.NewInterval, _ = normalizer.Int(freq, "new_interval")

	trigger := normalizer.Map(actions, "trigger_alert")
	d.Actions.TriggerAlert.ShouldAlert, _ = normalizer.Bool(trigger, "should_alert")
	d.Actions.TriggerAlert.AlertMessage = normalizer.String(trigger, "alert_message", "")

	d.MemoryUpdate.KeyRisksToSave = normalizer.Strings(normalizer.Map(m, "memory_update"), "key_risks_to_save")
	return d
}

func fallbackDecision(report *model.ScanReport) *model.Decision {
	items := make([]model.DecisionItem, 0, len(report.Topics))
	titles := make([]string, 0, len(report.Topics))
	for _, t := range report.Topics {
		reason := t.Reason
		if reason == "" {
			reason = "无摘要"
		}
		items = append(items, model.DecisionItem{Title: t.Topic, Reason: reason, Level: model.LevelMedium.Label()})
		titles = append(titles, t.Topic)
	}

	return &model.Decision{
		RiskSummary:     fmt.Sprintf("从热点报告中提取了 %d 个风险话题", len(items)),
		RiskItems:       items,
		GlobalRiskLevel: model.LevelMedium.String(),
		Confidence:      0.8,
		Actions: model.Actions{
			Research: model.ResearchAction{ShouldCall: true, TargetTopics: titles},
		},
		Fallback: true,
	}
}

func (a *Analyzer) remember(d *model.Decision) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.last = d
	a.history = append(a.history, historyEntry{
		Timestamp:       a.now().Format(model.TimeLayout),
		GlobalRiskLevel: d.GlobalRiskLevel,
		RiskItems:       d.RiskItems,
		KeyRisks:        d.MemoryUpdate.KeyRisksToSave,
	})
	if len(a.history) > a.historyCap {
		a.history = append([]historyEntry(nil), a.history[len(a.history)-a.historyCap:]...)
	}
}

func (a *Analyzer) recentHistory() []historyEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]historyEntry{}, a.history...)
}

func priority(level string) string {
	l, ok := model.ParseLevel(level)
	switch {
	case !ok:
		return "medium"
	case l == model.LevelHigh:
		return "high"
	case l == model.LevelMedium:
		return "medium"
	default:
		return "low"
	}
}
