package server

import (
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iWorld-y/risk_radar/app/risk_radar/internal/service"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// NewHTTPServer 创建控制接口
func NewHTTPServer(c config.ServerConfig, s *service.RadarService) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r := srv.Route("/api")
	r.GET("/status", func(ctx http.Context) error {
		return ctx.JSON(200, s.Status(ctx))
	})
	r.POST("/pause", func(ctx http.Context) error {
		st, err := s.Pause(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(200, st)
	})
	r.POST("/resume", func(ctx http.Context) error {
		st, err := s.Resume(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(200, st)
	})
	r.GET("/alerts", func(ctx http.Context) error {
		alerts, err := s.ListAlerts(ctx, limit(ctx))
		if err != nil {
			return err
		}
		return ctx.JSON(200, alerts)
	})
	r.GET("/alerts/archived", func(ctx http.Context) error {
		alerts, err := s.ListArchivedAlerts(ctx, limit(ctx))
		if err != nil {
			return err
		}
		return ctx.JSON(200, alerts)
	})
	r.GET("/intelligence", func(ctx http.Context) error {
		items, err := s.ListIntelligence(ctx, limit(ctx))
		if err != nil {
			return err
		}
		return ctx.JSON(200, items)
	})
	r.POST("/research", func(ctx http.Context) error {
		var req model.ResearchRequest
		if err := ctx.Bind(&req); err != nil {
			return ctx.JSON(400, &model.ResearchResponse{
				Status: model.StatusError,
				Error:  &model.ResponseError{Code: model.CodeValidation, Message: "请求体不是有效的 JSON"},
			})
		}
		resp := s.Research(ctx, req)
		code := 200
		if resp.Error != nil {
			switch resp.Error.Code {
			case model.CodeValidation:
				code = 400
			default:
				code = 500
			}
		}
		return ctx.JSON(code, resp)
	})

	return srv
}

// limit 解析 ?limit=N，非法值交给业务层取默认
func limit(ctx http.Context) int {
	n, _ := strconv.Atoi(ctx.Query().Get("limit"))
	return n
}
