package spotter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/llm"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/media"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/store"
)

const topic = "某明星偷税漏税事件"

// fakeLLM 按系统提示词区分调用阶段
type fakeLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeLLM) Invoke(ctx context.Context, systemPrompt, userPrompt string, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, systemPrompt)
	if err := f.errs[systemPrompt]; err != nil {
		return "", err
	}
	return f.replies[systemPrompt], nil
}

type fakeCrawler struct {
	platform string
	items    []model.MediaItem
	err      error
	limits   []media.Limits
}

func (f *fakeCrawler) Platform() string { return f.platform }

func (f *fakeCrawler) Search(ctx context.Context, keyword string, limits media.Limits) (*model.MediaBundle, error) {
	f.limits = append(f.limits, limits)
	if f.err != nil {
		return nil, f.err
	}
	comments := 0
	for _, it := range f.items {
		comments += len(it.Comments)
	}
	return &model.MediaBundle{Keyword: keyword, Platform: f.platform, Items: f.items, TotalItems: len(f.items), TotalComments: comments}, nil
}

func comments(n int) []model.MediaComment {
	out := make([]model.MediaComment, n)
	for i := range out {
		out[i] = model.MediaComment{ID: fmt.Sprint(i), Content: fmt.Sprintf("评论%d", i)}
	}
	return out
}

func newSpotter(t *testing.T, f *fakeLLM, crawlers ...media.Crawler) (*Spotter, *store.Bounded[MemoryEntry], *store.Archive) {
	dir := t.TempDir()
	mem := store.NewBounded[MemoryEntry]("vcs_memory", filepath.Join(dir, "vcs_memory.json"), 10)
	archive := store.NewArchive(filepath.Join(dir, "reports"))
	s := New(f, crawlers, mem, archive, Options{MaxItems: 5, MaxComments: 15})
	s.now = func() time.Time { return time.Date(2025, 7, 1, 9, 30, 0, 0, time.Local) }
	return s, mem, archive
}

func TestIsKeywordRelevant(t *testing.T) {
	tests := []struct {
		keyword string
		want    bool
	}{
		{"偷税漏税", true},
		{"明星 偷税", true},
		{"某明星", true},
		{"今日天气", false},
		{"test数据", false},
		{"偷税漏税测试", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			assert.Equal(t, tt.want, IsKeywordRelevant(tt.keyword, topic))
		})
	}
}

func TestIsKeywordRelevant_IgnoresPunctuation(t *testing.T) {
	assert.True(t, IsKeywordRelevant("食品，安全", "食品安全风波"))
	assert.True(t, IsKeywordRelevant("A公司,B", "A公司裁员"))
	assert.False(t, IsKeywordRelevant("天气预报", "食品安全风波"))
}

func TestAcceptKeyword_Length(t *testing.T) {
	assert.True(t, AcceptKeyword("偷税漏税", topic))
	assert.False(t, AcceptKeyword("偷", topic))
	assert.False(t, AcceptKeyword(strings.Repeat("偷税", 11), topic))
}

func TestFallbackKeyword(t *testing.T) {
	assert.Equal(t, "某明星偷税漏税", FallbackKeyword(topic))
	assert.Equal(t, "的问题", FallbackKeyword("的问题"))
	assert.Equal(t, "一二三四五六七八九十", FallbackKeyword("一二三四五六七八九十十一"))
}

func TestIsImportant(t *testing.T) {
	tests := []struct {
		likes, comments, views int
		want                   bool
	}{
		{201, 21, 0, true},
		{200, 21, 0, false},
		{201, 20, 0, false},
		{40, 20, 5001, true},
		{10, 10, 5001, false},
		{100, 0, 5000, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsImportant(tt.likes, tt.comments, tt.views), "%+v", tt)
	}
}

func TestRankImportant(t *testing.T) {
	var in []model.ImportantVideo
	for i := 0; i < 12; i++ {
		in = append(in, model.ImportantVideo{Title: fmt.Sprint("v", i), URL: fmt.Sprint("https://v/", i), Likes: i * 10})
	}
	in = append(in,
		model.ImportantVideo{Title: "dup", URL: "https://v/11", Likes: 1000},
		model.ImportantVideo{Title: "no-url", Likes: 500},
		model.ImportantVideo{Title: "no-url", Likes: 600},
	)

	out := RankImportant(in)
	require.Len(t, out, 10)
	assert.Equal(t, "no-url", out[0].Title)
	assert.Equal(t, 500, out[0].Likes)
	assert.Equal(t, "v11", out[1].Title)
	assert.Equal(t, "v10", out[2].Title)
}

func TestGenerateKeywords(t *testing.T) {
	f := &fakeLLM{replies: map[string]string{keywordSystemPrompt: `{"keywords_config": [
		{"keyword": "偷税漏税", "max_video_count": 10, "max_comment_count": 30},
		{"keyword": "今日天气", "max_video_count": 3, "max_comment_count": 5},
		{"keyword": "test数据"},
		{"keyword": "偷税漏税"},
		{"keyword": "明星", "max_video_count": 2, "max_comment_count": 4}
	], "max_retries": 2}`}}
	s, _, _ := newSpotter(t, f, &fakeCrawler{platform: "dy"})

	plan := s.GenerateKeywords(context.Background(), model.ResearchRequest{Topic: topic})
	assert.Equal(t, []model.KeywordPlan{
		{Keyword: "偷税漏税", MaxVideoCount: 5, MaxCommentCount: 15},
		{Keyword: "明星", MaxVideoCount: 2, MaxCommentCount: 4},
	}, plan.Keywords)
	assert.Equal(t, []string{"dy"}, plan.Platforms)
	assert.Equal(t, 2, plan.Retries)
}

func TestGenerateKeywords_Fallbacks(t *testing.T) {
	req := model.ResearchRequest{Topic: topic}

	f := &fakeLLM{replies: map[string]string{keywordSystemPrompt: `{"keywords_config":[{"keyword":"今日天气"}]}`}}
	s, _, _ := newSpotter(t, f)
	assert.Equal(t, []model.KeywordPlan{{Keyword: "某明星偷税漏税", MaxVideoCount: 5, MaxCommentCount: 15}},
		s.GenerateKeywords(context.Background(), req).Keywords)

	f = &fakeLLM{errs: map[string]error{keywordSystemPrompt: errors.New("timeout")}}
	s, _, _ = newSpotter(t, f)
	assert.Equal(t, []model.KeywordPlan{{Keyword: topic, MaxVideoCount: 5, MaxCommentCount: 15}},
		s.GenerateKeywords(context.Background(), req).Keywords)

	f = &fakeLLM{replies: map[string]string{keywordSystemPrompt: "无法生成"}}
	s, _, _ = newSpotter(t, f)
	assert.Equal(t, topic, s.GenerateKeywords(context.Background(), req).Keywords[0].Keyword)
}

const subReply = `{"summary": "讨论集中在补税金额", "key_findings": ["f1", "f2"],
	"sentiment_analysis": {"positive": 0.1, "neutral": 0.3, "negative": 0.6},
	"risk_assessment": {"level": "高", "factors": ["x"]}, "confidence_score": 3}`

func TestProcessTopic(t *testing.T) {
	f := &fakeLLM{replies: map[string]string{
		keywordSystemPrompt:   `{"keywords_config":[{"keyword":"偷税漏税"},{"keyword":"某明星"}]}`,
		subReportSystemPrompt: subReply,
		finalSystemPrompt: `{"summary": "综合报告", "key_findings": ["f0", "f1"],
			"risk_assessment": {"level": "高", "factors": ["y"]}, "confidence_score": 0.8}`,
	}}
	dy := &fakeCrawler{platform: "dy", items: []model.MediaItem{
		{Title: "热门视频", URL: "https://v/1", Likes: 300, Views: 100, Comments: comments(25)},
		{Title: "普通视频", URL: "https://v/2", Likes: 5, Views: 100, Comments: comments(2)},
	}}
	bili := &fakeCrawler{platform: "bili", err: errors.New("403")}
	s, mem, archive := newSpotter(t, f, dy, bili)

	res := s.ProcessTopic(context.Background(), model.ResearchRequest{Topic: topic, Priority: "high"})

	require.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, model.ResearchStatistics{TotalPlatforms: 2, TotalKeywords: 2, TotalItems: 4, TotalComments: 54}, res.Statistics)
	require.Len(t, res.SubReports, 2)
	sub := res.SubReports[0]
	assert.Equal(t, "偷税漏税", sub.Keyword)
	assert.Equal(t, 1.0, sub.ConfidenceScore)
	assert.Equal(t, "高", sub.RiskAssessment.Level)
	assert.Equal(t, 2, sub.DataCount)
	assert.Equal(t, 27, sub.CommentCount)
	assert.Equal(t, map[string]string{"bili": "403"}, sub.CrawlErrors)
	assert.Equal(t, []media.Limits{{MaxItems: 5, MaxComments: 15}, {MaxItems: 5, MaxComments: 15}}, dy.limits)

	require.Len(t, res.ImportantVideos, 1)
	assert.Equal(t, "热门视频", res.ImportantVideos[0].Title)

	r := res.Report
	require.NotNil(t, r)
	assert.Equal(t, "综合报告", r.Summary)
	assert.Equal(t, []string{"f0", "f1", "f2"}, r.KeyFindings)
	assert.Equal(t, []string{"y", "x"}, r.RiskAssessment.Factors)
	assert.Equal(t, 4, r.DataCount)
	assert.Equal(t, 54, r.CommentCount)
	assert.Equal(t, topic, r.SourceTopic)

	entries, err := mem.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"偷税漏税", "某明星"}, entries[0].Keywords)
	assert.Equal(t, "高", entries[0].RiskLevel)

	base := filepath.Base(res.ReportPath)
	assert.True(t, strings.HasPrefix(base, "research_"))
	assert.False(t, strings.HasPrefix(base, "research_error_"))
	assert.Equal(t, archive.Dir(), filepath.Dir(res.ReportPath))
}

func TestProcessTopic_NoDataStillReports(t *testing.T) {
	f := &fakeLLM{replies: map[string]string{
		keywordSystemPrompt:   `{"keywords_config":[{"keyword":"偷税漏税"}]}`,
		subReportSystemPrompt: `not json`,
		finalSystemPrompt:     `{"summary": "暂无数据", "confidence_score": 0.9}`,
	}}
	s, _, _ := newSpotter(t, f, &fakeCrawler{platform: "dy"})

	res := s.ProcessTopic(context.Background(), model.ResearchRequest{Topic: topic})
	require.Equal(t, model.StatusSuccess, res.Status)
	require.Len(t, res.SubReports, 1)
	assert.Equal(t, "分析报告摘要", res.SubReports[0].Summary)
	assert.Equal(t, "medium", res.SubReports[0].RiskAssessment.Level)
	assert.Equal(t, emptyEvidenceConfidence, res.Report.ConfidenceScore)
	assert.Empty(t, res.ImportantVideos)
}

func TestProcessTopic_LLMFailures(t *testing.T) {
	f := &fakeLLM{
		replies: map[string]string{keywordSystemPrompt: `{"keywords_config":[{"keyword":"偷税漏税"}]}`},
		errs: map[string]error{
			subReportSystemPrompt: errors.New("timeout"),
			finalSystemPrompt:     errors.New("timeout"),
		},
	}
	s, _, _ := newSpotter(t, f, &fakeCrawler{platform: "dy", items: []model.MediaItem{{Title: "a"}}})

	res := s.ProcessTopic(context.Background(), model.ResearchRequest{Topic: topic})
	require.Equal(t, model.StatusSuccess, res.Status)

	sub := res.SubReports[0]
	assert.Equal(t, "对话题 '某明星偷税漏税事件' 的分析失败", sub.Summary)
	assert.Equal(t, "unknown", sub.RiskAssessment.Level)
	assert.Equal(t, 0.0, sub.ConfidenceScore)

	r := res.Report
	assert.Equal(t, "汇总报告生成失败，使用默认报告", r.Summary)
	assert.Equal(t, []string{"分析过程中出现错误"}, r.KeyFindings)
	assert.Equal(t, []string{"分析失败: timeout"}, r.RiskAssessment.Factors)
	assert.Equal(t, 0.0, r.ConfidenceScore)
}

func TestProcessTopic_NoCrawler(t *testing.T) {
	f := &fakeLLM{}
	s, _, archive := newSpotter(t, f)

	res := s.ProcessTopic(context.Background(), model.ResearchRequest{Topic: topic})
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, ErrNoCrawler.Error(), res.Error)
	assert.Equal(t, "unknown", res.Report.RiskAssessment.Level)
	assert.Empty(t, f.calls)

	files, err := filepath.Glob(filepath.Join(archive.Dir(), "research_error_*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestProcessTopic_ClampsSentiment(t *testing.T) {
	const (
		sub   = `{"summary": "情绪两极", "sentiment_analysis": {"positive": 60, "neutral": -5, "negative": 35}}`
		final = `{"summary": "综合报告", "sentiment_analysis": {"positive": 250, "negative": -1}}`
	)
	f := &fakeLLM{replies: map[string]string{
		keywordSystemPrompt:   `{"keywords_config":[{"keyword":"偷税漏税"}]}`,
		subReportSystemPrompt: sub,
		finalSystemPrompt:     final,
	}}
	s, _, _ := newSpotter(t, f, &fakeCrawler{platform: "dy", items: []model.MediaItem{{Title: "a", Comments: comments(3)}}})

	res := s.ProcessTopic(context.Background(), model.ResearchRequest{Topic: topic})
	require.Equal(t, model.StatusSuccess, res.Status)
	require.Len(t, res.SubReports, 1)
	assert.Equal(t, model.Sentiment{Positive: 1, Neutral: 0, Negative: 1}, res.SubReports[0].Sentiment)
	require.NotNil(t, res.Report)
	assert.Equal(t, model.Sentiment{Positive: 1, Neutral: 0, Negative: 0}, res.Report.Sentiment)
}

func TestProcessTopic_MemoryCapped(t *testing.T) {
	f := &fakeLLM{replies: map[string]string{
		keywordSystemPrompt:   `{"keywords_config":[{"keyword":"偷税漏税"}]}`,
		subReportSystemPrompt: subReply,
		finalSystemPrompt:     `{"summary": "综合报告", "risk_assessment": {"level": "中"}}`,
	}}
	dir := t.TempDir()
	mem := store.NewBounded[MemoryEntry]("vcs_memory", filepath.Join(dir, "vcs_memory.json"), 2)
	s := New(f, []media.Crawler{&fakeCrawler{platform: "dy"}}, mem, store.NewArchive(filepath.Join(dir, "reports")), Options{})

	for _, tp := range []string{"话题一", "话题二", "话题三"} {
		res := s.ProcessTopic(context.Background(), model.ResearchRequest{Topic: tp})
		require.Equal(t, model.StatusSuccess, res.Status)
	}

	entries, err := mem.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "话题二", entries[0].Topic)
	assert.Equal(t, "话题三", entries[1].Topic)
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   model.ResearchRequest
		field string
	}{
		{"ok", model.ResearchRequest{Topic: topic, Priority: "high"}, ""},
		{"no priority", model.ResearchRequest{Topic: topic}, ""},
		{"empty topic", model.ResearchRequest{Topic: "  "}, "topic"},
		{"long topic", model.ResearchRequest{Topic: strings.Repeat("长", 501)}, "topic"},
		{"bad priority", model.ResearchRequest{Topic: topic, Priority: "urgent"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestHandleRequest(t *testing.T) {
	f := &fakeLLM{replies: map[string]string{
		keywordSystemPrompt:   `{"keywords_config":[{"keyword":"偷税漏税"}]}`,
		subReportSystemPrompt: subReply,
		finalSystemPrompt:     `{"summary": "综合报告", "risk_assessment": {"level": "中"}}`,
	}}
	s, _, _ := newSpotter(t, f, &fakeCrawler{platform: "dy", items: []model.MediaItem{{Title: "a", Comments: comments(3)}}})

	resp := s.HandleRequest(context.Background(), model.ResearchRequest{Topic: topic})
	require.Equal(t, model.StatusSuccess, resp.Status)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "综合报告", resp.Data.Report.Summary)
	assert.NotEmpty(t, resp.Metadata.RequestID)
	assert.NotEmpty(t, resp.Metadata.ReportPath)
	assert.Equal(t, 3, resp.Metadata.Statistics.TotalComments)
}

func TestHandleRequest_Errors(t *testing.T) {
	f := &fakeLLM{}
	s, _, _ := newSpotter(t, f, &fakeCrawler{platform: "dy"})

	resp := s.HandleRequest(context.Background(), model.ResearchRequest{RequestID: "r-1", Priority: "urgent", Topic: topic})
	assert.Equal(t, model.StatusError, resp.Status)
	assert.Nil(t, resp.Data)
	assert.Equal(t, model.CodeValidation, resp.Error.Code)
	assert.Equal(t, "r-1", resp.Metadata.RequestID)
	assert.Empty(t, f.calls)

	noCrawler, _, _ := newSpotter(t, f)
	resp = noCrawler.HandleRequest(context.Background(), model.ResearchRequest{Topic: topic})
	assert.Equal(t, model.CodeProcessing, resp.Error.Code)
	assert.Equal(t, ErrNoCrawler.Error(), resp.Error.Message)
}
