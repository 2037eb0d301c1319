package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/store"
)

const (
	// maxFindingFactors 作为风险因素展示的关键发现数量
	maxFindingFactors = 5
	// maxDetailFindings 告警详情中保留的关键发现数量
	maxDetailFindings = 10
)

// Sink 告警的额外持久化目标，如数据库归档
type Sink interface {
	SaveAlert(ctx context.Context, report *model.AlertReport) error
}

// Aggregator 预警生成器
type Aggregator struct {
	alerts  *store.Bounded[model.AlertReport]
	archive *store.Archive
	sink    Sink
	now     func() time.Time
}

// Option 生成器选项
type Option func(*Aggregator)

// WithArchive 每条告警额外写入一份归档文件
func WithArchive(a *store.Archive) Option {
	return func(g *Aggregator) { g.archive = a }
}

// WithSink 每条告警额外写入 sink，失败只记录日志
func WithSink(s Sink) Option {
	return func(g *Aggregator) { g.sink = s }
}

// NewAggregator 创建预警生成器
func NewAggregator(alerts *store.Bounded[model.AlertReport], opts ...Option) *Aggregator {
	g := &Aggregator{alerts: alerts, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate 根据扫描报告、决策与调研摘要生成预警
//
// 最终风险等级取决策等级与调研等级中较高者，相同时保留决策等级。
// 生成失败时返回最小化的错误预警，永远不返回 nil。
func (g *Aggregator) Generate(scan *model.ScanReport, decision *model.Decision, digest *model.ResearchDigest) *model.AlertReport {
	report, err := g.generate(scan, decision, digest)
	if err != nil {
		logger.Log.Errorf("生成舆情预警失败: %v", err)
		return g.errorAlert(err)
	}
	logger.Log.Infof("生成%s级别舆情预警，风险等级：%s，针对话题：%s",
		report.AlertLevel, report.RiskLevel, strings.Join(report.TargetTopics, ", "))
	return report
}

func (g *Aggregator) generate(scan *model.ScanReport, decision *model.Decision, digest *model.ResearchDigest) (*model.AlertReport, error) {
	if decision == nil {
		return nil, errors.New("decision is nil")
	}
	if scan == nil {
		scan = &model.ScanReport{}
	}

	level, _ := model.ParseLevel(decision.GlobalRiskLevel)

	factors := make([]string, 0, len(decision.RiskItems))
	for _, item := range decision.RiskItems {
		factors = append(factors, fmt.Sprintf("%s: %s (%s)", item.Title, item.Reason, item.Level))
	}

	var details *model.AlertDetails
	var research *model.DigestStats
	if digest != nil && digest.Success {
		if rl, ok := model.ParseLevel(digest.RiskLevel); ok {
			level = level.Max(rl)
		}
		for _, f := range digest.RiskFactors {
			factors = append(factors, "深度调研发现: "+f)
		}
		for i, f := range digest.KeyFindings {
			if i >= maxFindingFactors {
				break
			}
			factors = append(factors, "关键发现: "+f)
		}

		stats := digest.Stats
		research = &stats
		findings := digest.KeyFindings
		if len(findings) > maxDetailFindings {
			findings = findings[:maxDetailFindings]
		}
		details = &model.AlertDetails{
			Stats:          digest.Stats,
			HotOpinions:    digest.HotOpinions,
			KeyFindings:    findings,
			Recommendation: digest.Recommendation,
		}
	}

	targets := decision.Actions.Research.TargetTopics
	if len(targets) == 0 {
		for _, item := range decision.RiskItems {
			targets = append(targets, item.Title)
		}
	}

	summary := decision.RiskSummary
	if summary == "" {
		summary = "未生成摘要"
	}

	actions := decision.Actions
	now := g.now()
	recs := Recommendations(level, factors, targets)
	recs = append(recs, MonitoringSuggestion(level))

	return &model.AlertReport{
		AlertID:      fmt.Sprintf("RA-%s-%s", now.Format("20060102150405"), shortID()),
		Timestamp:    now.Format(model.TimeLayout),
		AlertLevel:   level.AlertLevel(),
		RiskLevel:    level.String(),
		Summary:      summary,
		TargetTopics: nonNil(targets),
		RiskFactors:  factors,
		SourceInfo: model.SourceInfo{
			Hotspot: model.HotspotSource{
				TopicCount:  len(scan.Topics),
				ScanSummary: scan.Summary,
			},
			Research: research,
		},
		Actions:         &actions,
		Recommendations: recs,
		Details:         details,
	}, nil
}

func (g *Aggregator) errorAlert(err error) *model.AlertReport {
	now := g.now()
	return &model.AlertReport{
		AlertID:         fmt.Sprintf("RA-ERROR-%s-%s", now.Format("20060102150405"), shortID()),
		Timestamp:       now.Format(model.TimeLayout),
		AlertLevel:      model.AlertImportant,
		RiskLevel:       "未知",
		Summary:         "舆情预警生成失败",
		TargetTopics:    []string{},
		RiskFactors:     []string{},
		Recommendations: []string{},
		Error:           err.Error(),
	}
}

// Save 写入告警库，并按配置写入归档与 sink
//
// 告警库写入失败时返回错误，归档与 sink 的失败只记录日志。
func (g *Aggregator) Save(ctx context.Context, report *model.AlertReport) error {
	metrics.Alert(report.AlertLevel)

	var errs []error
	if g.alerts != nil {
		if _, err := g.alerts.Append(ctx, *report); err != nil {
			errs = append(errs, fmt.Errorf("append alert: %w", err))
		}
	}
	if g.archive != nil {
		if _, err := g.archive.Save("risk_alert", report); err != nil {
			logger.Log.Warnf("预警归档失败: %v", err)
		}
	}
	if g.sink != nil {
		if err := g.sink.SaveAlert(ctx, report); err != nil {
			logger.Log.Warnf("预警写入数据库失败: %v", err)
		}
	}
	return errors.Join(errs...)
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
