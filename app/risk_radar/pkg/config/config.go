package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Hotlist     HotlistConfig     `yaml:"hotlist"`
	Media       MediaConfig       `yaml:"media"`
	Store       StoreConfig       `yaml:"store"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Server      ServerConfig      `yaml:"server"`
	DB          DBConfig          `yaml:"db"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"max_retries"`
	// RetryDelay 首次重试等待秒数，之后指数退避
	RetryDelay int `yaml:"retry_delay"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// HotlistConfig 热榜抓取配置
type HotlistConfig struct {
	URLs    []string `yaml:"urls"`
	Timeout int      `yaml:"timeout"` // 单次请求超时（秒）
	Delay   int      `yaml:"delay"`   // 相邻来源之间的间隔（秒）
}

// MediaConfig 视频/评论调研配置
type MediaConfig struct {
	// Provider 可选 simulated / searxng / tavily
	Provider    string        `yaml:"provider"`
	Platform    string        `yaml:"platform"`
	MaxItems    int           `yaml:"max_items"`
	MaxComments int           `yaml:"max_comments"`
	SearXNG     SearXNGConfig `yaml:"searxng"`
	Tavily      TavilyConfig  `yaml:"tavily"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// StoreConfig 本地 JSON 存储配置
type StoreConfig struct {
	Dir             string `yaml:"dir"`
	IntelligenceCap int    `yaml:"intelligence_cap"`
	AlertCap        int    `yaml:"alert_cap"`
	MemoryLoadCap   int    `yaml:"memory_load_cap"`
	MemorySaveCap   int    `yaml:"memory_save_cap"`
	ProcessedIDCap  int    `yaml:"processed_id_cap"`
	HistoryCap      int    `yaml:"history_cap"`
}

// ScheduleConfig 调度配置
type ScheduleConfig struct {
	ScanInterval     int `yaml:"scan_interval"`     // 热点扫描间隔（秒）
	DecisionInterval int `yaml:"decision_interval"` // 决策轮询间隔（秒）
	// RetentionCron 归档清理的 cron 表达式，为空则不清理
	RetentionCron string `yaml:"retention_cron"`
	RetentionDays int    `yaml:"retention_days"`
}

// ServerConfig 控制接口配置
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// DBConfig 数据库相关配置，Host 为空时不启用
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// DefaultHotlistURLs 默认抓取的热榜页面
var DefaultHotlistURLs = []string{
	"https://tophub.today/n/KqndgxeLl9", // 微博热搜
	"https://tophub.today/n/DpQvNABoNE", // 抖音热榜
	"https://tophub.today/n/mproPpoq6O", // 知乎热榜
}

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults 为未设置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = 3
	}
	if c.LLM.RetryDelay <= 0 {
		c.LLM.RetryDelay = 2
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 60
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}

	if len(c.Hotlist.URLs) == 0 {
		c.Hotlist.URLs = append([]string(nil), DefaultHotlistURLs...)
	}
	if c.Hotlist.Timeout <= 0 {
		c.Hotlist.Timeout = 20
	}
	if c.Hotlist.Delay < 0 {
		c.Hotlist.Delay = 0
	}

	if c.Media.Provider == "" {
		c.Media.Provider = "simulated"
	}
	if c.Media.Platform == "" {
		c.Media.Platform = "dy"
	}
	if c.Media.MaxItems <= 0 || c.Media.MaxItems > 5 {
		c.Media.MaxItems = 5
	}
	if c.Media.MaxComments <= 0 || c.Media.MaxComments > 15 {
		c.Media.MaxComments = 15
	}

	if c.Store.Dir == "" {
		c.Store.Dir = "output"
	}
	if c.Store.IntelligenceCap <= 0 {
		c.Store.IntelligenceCap = 100
	}
	if c.Store.AlertCap <= 0 {
		c.Store.AlertCap = 100
	}
	if c.Store.MemoryLoadCap <= 0 {
		c.Store.MemoryLoadCap = 200
	}
	if c.Store.MemorySaveCap <= 0 {
		c.Store.MemorySaveCap = 1000
	}
	if c.Store.ProcessedIDCap <= 0 {
		c.Store.ProcessedIDCap = 500
	}
	if c.Store.HistoryCap <= 0 {
		c.Store.HistoryCap = 10
	}

	if c.Schedule.ScanInterval <= 0 {
		c.Schedule.ScanInterval = 300
	}
	if c.Schedule.DecisionInterval <= 0 {
		c.Schedule.DecisionInterval = 60
	}
	if c.Schedule.RetentionDays <= 0 {
		c.Schedule.RetentionDays = 7
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
}

// Path 返回存储目录下的文件路径
func (c *Config) Path(name string) string {
	return filepath.Join(c.Store.Dir, name)
}
