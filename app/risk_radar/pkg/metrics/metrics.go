// Package metrics 定义流水线的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "risk_radar"

var (
	// Registry 独立注册表，避免与默认注册表中的进程指标冲突
	Registry = prometheus.NewRegistry()

	llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_calls_total",
		Help:      "Number of LLM invocations by result.",
	}, []string{"result"})

	llmDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_call_duration_seconds",
		Help:      "LLM invocation latency including retries.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	stageRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_runs_total",
		Help:      "Number of stage executions by stage and status.",
	}, []string{"stage", "status"})

	droppedItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_items_total",
		Help:      "Items dropped by validation, by stage.",
	}, []string{"stage"})

	alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_total",
		Help:      "Alerts generated by alert level.",
	}, []string{"level"})

	storeSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_items",
		Help:      "Number of items currently held by each bounded store.",
	}, []string{"store"})
)

func init() {
	Registry.MustRegister(llmCalls, llmDuration, stageRuns, droppedItems, alerts, storeSize)
}

// ObserveLLMCall 记录一次 LLM 调用
func ObserveLLMCall(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	llmCalls.WithLabelValues(result).Inc()
	llmDuration.Observe(d.Seconds())
}

// StageRun 记录一次阶段执行
func StageRun(stage, status string) {
	stageRuns.WithLabelValues(stage, status).Inc()
}

// Dropped 记录被校验丢弃的条目数
func Dropped(stage string, n int) {
	if n > 0 {
		droppedItems.WithLabelValues(stage).Add(float64(n))
	}
}

// Alert 记录一条告警
func Alert(level string) {
	alerts.WithLabelValues(level).Inc()
}

// StoreSize 更新存储条目数
func StoreSize(store string, n int) {
	storeSize.WithLabelValues(store).Set(float64(n))
}
