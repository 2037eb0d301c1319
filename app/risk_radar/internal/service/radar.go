package service

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/orchestrator"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	// researchTimeout 人工调研的最长执行时间，与请求的超时无关
	researchTimeout = 10 * time.Minute
)

// Controller 调度器的控制面
type Controller interface {
	Status() orchestrator.Status
	Pause() error
	Resume() error
}

// Researcher 处理人工调研请求
type Researcher interface {
	HandleRequest(ctx context.Context, req model.ResearchRequest) *model.ResearchResponse
}

// AlertArchive 数据库中的预警归档
type AlertArchive interface {
	RecentAlerts(ctx context.Context, limit int) ([]model.AlertReport, error)
}

// RadarService 控制接口的业务层
type RadarService struct {
	ctrl         Controller
	research     Researcher
	alerts       *store.Bounded[model.AlertReport]
	intelligence *store.Bounded[model.RiskItem]
	archive      AlertArchive
	log          *log.Helper
}

// NewRadarService archive 可以为空
func NewRadarService(ctrl Controller, research Researcher, alerts *store.Bounded[model.AlertReport],
	intelligence *store.Bounded[model.RiskItem], archive AlertArchive, logger log.Logger) *RadarService {
	return &RadarService{
		ctrl:         ctrl,
		research:     research,
		alerts:       alerts,
		intelligence: intelligence,
		archive:      archive,
		log:          log.NewHelper(logger),
	}
}

func (s *RadarService) Status(ctx context.Context) orchestrator.Status {
	return s.ctrl.Status()
}

func (s *RadarService) Pause(ctx context.Context) (orchestrator.Status, error) {
	if err := s.ctrl.Pause(); err != nil {
		s.log.Errorf("暂停系统失败: %v", err)
		return orchestrator.Status{}, errors.InternalServer("PAUSE_FAILED", err.Error())
	}
	return s.ctrl.Status(), nil
}

func (s *RadarService) Resume(ctx context.Context) (orchestrator.Status, error) {
	if err := s.ctrl.Resume(); err != nil {
		s.log.Errorf("恢复系统失败: %v", err)
		return orchestrator.Status{}, errors.InternalServer("RESUME_FAILED", err.Error())
	}
	return s.ctrl.Status(), nil
}

// ListAlerts 最近的预警，最新的在前
func (s *RadarService) ListAlerts(ctx context.Context, limit int) ([]model.AlertReport, error) {
	alerts, err := s.alerts.Recent(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, errors.InternalServer("STORE_ERROR", err.Error())
	}
	return reversed(alerts), nil
}

// ListArchivedAlerts 从数据库读取预警，未配置数据库时返回 503
func (s *RadarService) ListArchivedAlerts(ctx context.Context, limit int) ([]model.AlertReport, error) {
	if s.archive == nil {
		return nil, errors.ServiceUnavailable("ARCHIVE_DISABLED", "alert archive is not configured")
	}
	alerts, err := s.archive.RecentAlerts(ctx, normalizeLimit(limit))
	if err != nil {
		s.log.Errorf("读取预警归档失败: %v", err)
		return nil, errors.InternalServer("ARCHIVE_ERROR", err.Error())
	}
	return alerts, nil
}

// ListIntelligence 情报站中的风险话题，最新的在前
func (s *RadarService) ListIntelligence(ctx context.Context, limit int) ([]model.RiskItem, error) {
	items, err := s.intelligence.Recent(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, errors.InternalServer("STORE_ERROR", err.Error())
	}
	return reversed(items), nil
}

// Research 人工提交的深度调研
//
// 调研跑在脱离请求的 context 上，客户端断开或接口超时都不会截断调研，
// 最长执行 researchTimeout。
func (s *RadarService) Research(ctx context.Context, req model.ResearchRequest) *model.ResearchResponse {
	s.log.Infof("收到人工调研请求: %s", req.Topic)
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), researchTimeout)
	defer cancel()
	return s.research.HandleRequest(rctx, req)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

func reversed[T any](items []T) []T {
	out := make([]T, len(items))
	for i, v := range items {
		out[len(items)-1-i] = v
	}
	return out
}
