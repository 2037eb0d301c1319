package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/store"
)

type fakeCrawler struct {
	data map[string][]model.RawTopic
	errs map[string]error
}

func (f *fakeCrawler) Crawl(ctx context.Context, url string) ([]model.RawTopic, error) {
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.data[url], nil
}

type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
}

func (f *fakeLLM) Invoke(ctx context.Context, systemPrompt, userPrompt string, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, userPrompt)
	i := len(f.prompts) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", errors.New("no reply")
}

func newScanner(t *testing.T, crawler *fakeCrawler, invoker *fakeLLM, urls ...string) (*Scanner, *store.Bounded[model.RiskItem], *store.Bounded[model.RawTopic]) {
	dir := t.TempDir()
	intel := store.NewBounded[model.RiskItem]("intelligence", filepath.Join(dir, "intelligence_feed.json"), 100)
	mem := store.NewBounded[model.RawTopic]("hh_memory", filepath.Join(dir, "hh_memory.json"), 1000)
	s := New(context.Background(), crawler, invoker, intel, mem, Options{URLs: urls, MemoryLoadCap: 200, MemorySaveCap: 1000})
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, intel, mem
}

func TestRunOnce_ValidItemsPersisted(t *testing.T) {
	crawler := &fakeCrawler{data: map[string][]model.RawTopic{
		"u1": {{Rank: 1, Title: "某品牌食品安全问题"}},
	}}
	invoker := &fakeLLM{replies: []string{"```json\n" + `{"summary":"食品安全话题升温","items":[
		{"topic":"某品牌食品安全问题","platform":"微博","risk_level":8,"category":"社会","reason":"多名消费者投诉食用后出现不适症状"},
		{"topic":"无依据话题","risk_level":9,"reason":"太短"}
	]}` + "\n```"}}

	s, intel, mem := newScanner(t, crawler, invoker, "u1")
	report := s.RunOnce(context.Background())

	assert.Equal(t, "HH-1700000000", report.ScanID)
	assert.Equal(t, 1, report.ReportCount)
	require.Len(t, report.Topics, 1)
	assert.Equal(t, 1, report.TotalRiskItems)
	assert.Equal(t, "综合舆情分析: 食品安全话题升温", report.Summary)
	assert.Equal(t, 1, report.PerSource["u1"])

	item := report.Topics[0]
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, 8, item.RiskLevel)
	assert.True(t, item.FurtherInvestigate)
	assert.Equal(t, "u1", item.SourceURL)

	stored, err := intel.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Topics, stored)

	memory, err := mem.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, memory, 1)

	assert.Contains(t, invoker.prompts[0], "某品牌食品安全问题")
}

func TestRunOnce_LLMFailureYieldsSentinel(t *testing.T) {
	crawler := &fakeCrawler{data: map[string][]model.RawTopic{
		"u1": {{Rank: 1, Title: "话题"}},
	}}
	invoker := &fakeLLM{errs: []error{errors.New("timeout")}}

	s, _, _ := newScanner(t, crawler, invoker, "u1")
	report := s.RunOnce(context.Background())

	require.Len(t, report.Topics, 1)
	assert.Equal(t, model.FailedTopic, report.Topics[0].Topic)
	assert.Equal(t, 1, report.ReportCount)
}

func TestRunOnce_MalformedResponseDegrades(t *testing.T) {
	crawler := &fakeCrawler{data: map[string][]model.RawTopic{"u1": {{Title: "x"}}}}
	invoker := &fakeLLM{replies: []string{"抱歉，我无法完成"}}

	s, _, _ := newScanner(t, crawler, invoker, "u1")
	report := s.RunOnce(context.Background())

	assert.Empty(t, report.Topics)
	assert.Equal(t, 1, report.ReportCount)
	assert.True(t, strings.HasPrefix(report.Summary, "综合舆情分析: "))
}

func TestRunOnce_AllSourcesEmpty(t *testing.T) {
	crawler := &fakeCrawler{
		data: map[string][]model.RawTopic{},
		errs: map[string]error{"u2": errors.New("connection refused")},
	}
	invoker := &fakeLLM{}

	s, _, _ := newScanner(t, crawler, invoker, "u1", "u2")
	report := s.RunOnce(context.Background())

	require.NotNil(t, report)
	assert.Empty(t, report.Topics)
	assert.NotNil(t, report.Topics)
	assert.Zero(t, report.ReportCount)
	assert.Equal(t, "未获取到有效的风险报告", report.Summary)
	assert.Empty(t, invoker.prompts)
}

func TestRunOnce_HistoryWindow(t *testing.T) {
	raw := make([]model.RawTopic, 15)
	for i := range raw {
		raw[i] = model.RawTopic{Rank: i + 1, Title: "历史话题"}
	}
	crawler := &fakeCrawler{data: map[string][]model.RawTopic{"u1": raw}}
	invoker := &fakeLLM{replies: []string{`{"items":[]}`, `{"items":[]}`}}

	s, _, _ := newScanner(t, crawler, invoker, "u1")
	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	require.Len(t, invoker.prompts, 2)
	history := invoker.prompts[1][strings.Index(invoker.prompts[1], "## 最近的历史热榜"):]
	history = history[:strings.Index(history, "## 要求")]
	assert.Contains(t, history, `"rank":6,`)
	assert.NotContains(t, history, `"rank":5,`)
	assert.Len(t, s.history(), historyWindow)
}
