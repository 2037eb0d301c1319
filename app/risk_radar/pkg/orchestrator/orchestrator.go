// Package orchestrator 驱动扫描与决策两个后台循环
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/analyzer"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/store"
)

// 系统状态
const (
	StateRunning = "running"
	StatePaused  = "paused"
	StateStopped = "stopped"
)

// StateFileName 暂停状态文件名
const StateFileName = ".system_state"

// Scanner 热点扫描阶段
type Scanner interface {
	RunOnce(ctx context.Context) *model.ScanReport
}

// Analyzer 风险决策阶段
type Analyzer interface {
	RunFullAnalysis(ctx context.Context, report *model.ScanReport) *analyzer.Analysis
}

// Options 调度参数
type Options struct {
	ScanInterval     time.Duration
	DecisionInterval time.Duration
	// StateDir 存放暂停状态文件的目录
	StateDir       string
	ProcessedIDCap int
	// RetentionCron 为空时不清理归档
	RetentionCron string
	RetentionAge  time.Duration
}

// Status 运行状态快照
type Status struct {
	State          string  `json:"state"`
	StartedAt      string  `json:"started_at,omitempty"`
	Uptime         float64 `json:"uptime"`
	LastScan       string  `json:"last_scan,omitempty"`
	LastAnalysis   string  `json:"last_analysis,omitempty"`
	LastAlertID    string  `json:"last_alert_id,omitempty"`
	TotalScans     int     `json:"total_scans"`
	TotalAnalyses  int     `json:"total_analyses"`
	TotalAlerts    int     `json:"total_alerts"`
	ProcessedItems int     `json:"processed_items"`
}

// Orchestrator 调度器，实现 kratos transport.Server
type Orchestrator struct {
	scanner      Scanner
	analyzer     Analyzer
	intelligence *store.Bounded[model.RiskItem]
	archive      *store.Archive
	opts         Options

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
	tick   time.Duration
	now    func() time.Time

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	status    Status
	processed []string
	seen      map[string]struct{}
}

// New 创建调度器，archive 为空时不执行归档清理
func New(scanner Scanner, analyzer Analyzer, intelligence *store.Bounded[model.RiskItem], archive *store.Archive, opts Options) *Orchestrator {
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = 300 * time.Second
	}
	if opts.DecisionInterval <= 0 {
		opts.DecisionInterval = 60 * time.Second
	}
	if opts.ProcessedIDCap <= 0 {
		opts.ProcessedIDCap = 500
	}
	return &Orchestrator{
		scanner:      scanner,
		analyzer:     analyzer,
		intelligence: intelligence,
		archive:      archive,
		opts:         opts,
		tick:         time.Second,
		now:          time.Now,
		status:       Status{State: StateStopped},
		seen:         map[string]struct{}{},
	}
}

// Start 启动后台循环后立即返回
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return errors.New("orchestrator already started")
	}

	o.cron = nil
	if o.opts.RetentionCron != "" && o.archive != nil {
		c := cron.New()
		if _, err := c.AddFunc(o.opts.RetentionCron, o.sweep); err != nil {
			return fmt.Errorf("invalid retention cron %q: %w", o.opts.RetentionCron, err)
		}
		o.cron = c
		o.cron.Start()
	}

	o.running = true
	o.startedAt = o.now()
	o.status.StartedAt = o.startedAt.Format(model.TimeLayout)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.cancel = cancel
	o.wg.Add(2)
	go o.loop(loopCtx, "扫描", o.opts.ScanInterval, o.scanOnce)
	go o.loop(loopCtx, "决策", o.opts.DecisionInterval, o.decideOnce)

	logger.Log.Infof("调度器已启动，扫描间隔 %s，决策间隔 %s", o.opts.ScanInterval, o.opts.DecisionInterval)
	return nil
}

// Stop 通知循环退出并等待进行中的一轮结束
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	if o.cron != nil {
		<-o.cron.Stop().Done()
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Log.Info("调度器已停止")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause 暂停两个循环，状态写入文件，重启后保持
func (o *Orchestrator) Pause() error {
	return o.writeState(StatePaused)
}

// Resume 恢复运行
func (o *Orchestrator) Resume() error {
	return o.writeState(StateRunning)
}

// Paused 读取暂停状态，文件缺失或不可读视为运行中
func (o *Orchestrator) Paused() bool {
	data, err := os.ReadFile(o.statePath())
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == StatePaused
}

// Status 返回状态快照
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.status
	s.ProcessedItems = len(o.processed)
	switch {
	case !o.running:
		s.State = StateStopped
	case o.Paused():
		s.State = StatePaused
	default:
		s.State = StateRunning
	}
	if o.running {
		s.Uptime = o.now().Sub(o.startedAt).Round(time.Second).Seconds()
	}
	return s
}

func (o *Orchestrator) statePath() string {
	return filepath.Join(o.opts.StateDir, StateFileName)
}

func (o *Orchestrator) writeState(state string) error {
	if o.opts.StateDir != "" {
		if err := os.MkdirAll(o.opts.StateDir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	if err := os.WriteFile(o.statePath(), []byte(state), 0o644); err != nil {
		return fmt.Errorf("write system state: %w", err)
	}
	logger.Log.Infof("系统状态已切换为 %s", state)
	return nil
}

// loop 执行一轮后分段等待 interval，每个 tick 检查停止与暂停
func (o *Orchestrator) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context)) {
	defer o.wg.Done()
	logger.Log.Infof("%s循环开始运行", name)

	for {
		if !o.waitWhilePaused(ctx) {
			break
		}
		start := o.now()
		run(ctx)
		if !o.wait(ctx, interval-o.now().Sub(start)) {
			break
		}
	}
	logger.Log.Infof("%s循环已退出", name)
}

// waitWhilePaused 暂停期间每个 tick 检查一次，返回 false 表示应退出
func (o *Orchestrator) waitWhilePaused(ctx context.Context) bool {
	for o.Paused() {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(o.tick):
		}
	}
	return ctx.Err() == nil
}

// wait 分段等待 d，期间被暂停时提前结束等待，返回 false 表示应退出
func (o *Orchestrator) wait(ctx context.Context, d time.Duration) bool {
	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()
	deadline := o.now().Add(d)
	for o.now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if o.Paused() {
				return true
			}
		}
	}
	return ctx.Err() == nil
}

func (o *Orchestrator) scanOnce(ctx context.Context) {
	report := o.scanner.RunOnce(ctx)

	o.mu.Lock()
	o.status.TotalScans++
	o.status.LastScan = o.now().Format(model.TimeLayout)
	o.mu.Unlock()

	if report != nil {
		logger.Log.Infof("扫描 %s 完成，风险话题 %d 个", report.ScanID, len(report.Topics))
	}
}

func (o *Orchestrator) decideOnce(ctx context.Context) {
	items, err := o.intelligence.Load(ctx)
	if err != nil {
		logger.Log.Errorf("读取情报站失败: %v", err)
		return
	}

	batch := o.takeNew(items)
	if len(batch) == 0 {
		return
	}
	logger.Log.Infof("决策引擎正在分析 %d 条新情报", len(batch))

	now := o.now()
	report := &model.ScanReport{
		ScanID:         fmt.Sprintf("HH-%d", now.Unix()),
		Timestamp:      now.Format(model.TimeLayout),
		Summary:        "新发现的风险话题",
		Topics:         batch,
		ReportCount:    1,
		TotalRiskItems: len(batch),
	}
	out := o.analyzer.RunFullAnalysis(ctx, report)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.LastAnalysis = o.now().Format(model.TimeLayout)
	if out == nil || out.Status != model.StatusSuccess {
		return
	}
	o.status.TotalAnalyses++
	if out.Alert != nil {
		o.status.TotalAlerts++
		o.status.LastAlertID = out.Alert.AlertID
		logger.Log.Infof("生成预警: ID=%s，预警等级=%s，风险等级=%s", out.Alert.AlertID, out.Alert.AlertLevel, out.Alert.RiskLevel)
	}
}

// takeNew 过滤已处理与哨兵条目，并记录新条目的 id
//
// 已处理 id 超过上限时先遗忘最早的。
func (o *Orchestrator) takeNew(items []model.RiskItem) []model.RiskItem {
	o.mu.Lock()
	defer o.mu.Unlock()

	var batch []model.RiskItem
	for _, item := range items {
		id := item.ID
		if id == "" {
			id = item.Timestamp + "-" + item.Topic
		}
		if _, ok := o.seen[id]; ok {
			continue
		}
		o.seen[id] = struct{}{}
		o.processed = append(o.processed, id)
		if item.Topic == model.FailedTopic {
			continue
		}
		batch = append(batch, item)
	}

	if over := len(o.processed) - o.opts.ProcessedIDCap; over > 0 {
		for _, id := range o.processed[:over] {
			delete(o.seen, id)
		}
		o.processed = append([]string(nil), o.processed[over:]...)
	}
	return batch
}

func (o *Orchestrator) sweep() {
	n, err := o.archive.Sweep(o.opts.RetentionAge)
	if err != nil {
		logger.Log.Errorf("清理过期归档失败: %v", err)
		return
	}
	logger.Log.Infof("已清理 %d 份过期归档", n)
}
