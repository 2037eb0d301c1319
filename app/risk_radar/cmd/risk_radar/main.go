package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kratos/kratos/v2"

	"github.com/iWorld-y/risk_radar/app/risk_radar/internal/server"
	"github.com/iWorld-y/risk_radar/app/risk_radar/internal/service"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/alert"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/analyzer"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/hotlist"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/media"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/orchestrator"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/scanner"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/spotter"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/storage"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/store"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 服务名称
	Name = "risk_radar"
	// Version 服务版本号
	Version string

	flagconf string
	id, _    = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "app/risk_radar/configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(flagconf)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动舆情风险雷达...")

	ctx := context.Background()

	// 3. 初始化 LLM
	client, err := llm.NewClient(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("无法初始化 LLM: %v", err)
	}

	// 4. 存储
	intelligence := store.NewBounded[model.RiskItem]("intelligence", cfg.Path("intelligence_feed.json"), cfg.Store.IntelligenceCap)
	hhMemory := store.NewBounded[model.RawTopic]("hh_memory", cfg.Path("hh_memory.json"), cfg.Store.MemorySaveCap)
	alerts := store.NewBounded[model.AlertReport]("alerts", cfg.Path("system_alerts.json"), cfg.Store.AlertCap)
	vcsMemory := store.NewBounded[spotter.MemoryEntry]("vcs_memory", cfg.Path("vcs_memory.json"), cfg.Store.MemorySaveCap)
	archive := store.NewArchive(filepath.Join(cfg.Store.Dir, "reports"))

	// 如果配置了数据库信息，则预警同时写入数据库
	aggOpts := []alert.Option{alert.WithArchive(archive)}
	var db *storage.Storage
	if cfg.DB.Host != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err = storage.NewStorage(dbCtx, cfg.DB)
		cancel()
		if err != nil {
			logger.Log.Errorf("无法连接数据库: %v. 预警仅写入本地文件。", err)
			db = nil
		} else {
			defer db.Close()
			aggOpts = append(aggOpts, alert.WithSink(db))
			logger.Log.Info("已成功连接到数据库")
		}
	} else {
		logger.Log.Info("未配置数据库信息，跳过数据库连接")
	}

	// 5. 各阶段
	crawler, err := media.NewCrawler(cfg)
	if err != nil {
		logger.Log.Fatalf("无法初始化媒体抓取: %v", err)
	}
	spot := spotter.New(client, []media.Crawler{crawler}, vcsMemory, archive, spotter.Options{
		MaxItems:    cfg.Media.MaxItems,
		MaxComments: cfg.Media.MaxComments,
	})
	an := analyzer.New(client, spot, alert.NewAggregator(alerts, aggOpts...), cfg.Store.HistoryCap)
	sc := scanner.New(ctx, hotlist.NewTophub(time.Duration(cfg.Hotlist.Timeout)*time.Second), client, intelligence, hhMemory, scanner.Options{
		URLs:          cfg.Hotlist.URLs,
		Delay:         time.Duration(cfg.Hotlist.Delay) * time.Second,
		MemoryLoadCap: cfg.Store.MemoryLoadCap,
		MemorySaveCap: cfg.Store.MemorySaveCap,
	})

	orch := orchestrator.New(sc, an, intelligence, archive, orchestrator.Options{
		ScanInterval:     time.Duration(cfg.Schedule.ScanInterval) * time.Second,
		DecisionInterval: time.Duration(cfg.Schedule.DecisionInterval) * time.Second,
		StateDir:         cfg.Store.Dir,
		ProcessedIDCap:   cfg.Store.ProcessedIDCap,
		RetentionCron:    cfg.Schedule.RetentionCron,
		RetentionAge:     time.Duration(cfg.Schedule.RetentionDays) * 24 * time.Hour,
	})

	// 6. 控制接口
	klog := logger.NewKratosLogger()
	var archived service.AlertArchive
	if db != nil {
		archived = db
	}
	svc := service.NewRadarService(orch, spot, alerts, intelligence, archived, klog)
	hs := server.NewHTTPServer(cfg.Server, svc)

	app := kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(klog),
		kratos.Server(hs, orch),
	)
	if err := app.Run(); err != nil {
		logger.Log.Fatalf("服务异常退出: %v", err)
	}
}
