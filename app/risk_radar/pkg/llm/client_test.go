package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatModel 按顺序返回预设结果的 ChatModel
type fakeChatModel struct {
	errs     []error
	content  string
	calls    int
	messages []*schema.Message
	opts     []model.Option
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	f.messages = input
	f.opts = opts
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &schema.Message{Role: schema.Assistant, Content: f.content}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func newTestClient(cm *fakeChatModel) *Client {
	c := NewWithModel(cm, nil, 3, time.Millisecond)
	c.now = func() time.Time { return time.Date(2025, 3, 1, 8, 30, 0, 0, time.Local) }
	return c
}

func TestInvoke_PromptShape(t *testing.T) {
	cm := &fakeChatModel{content: `{"ok":true}`}
	c := newTestClient(cm)

	out, err := c.Invoke(context.Background(), "你是分析师", "分析以下数据", WithJSONMode(), WithTemperature(0.2))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	require.Len(t, cm.messages, 2)

	assert.Equal(t, schema.System, cm.messages[0].Role)
	assert.True(t, strings.HasPrefix(cm.messages[0].Content, "你是分析师"))
	assert.Contains(t, cm.messages[0].Content, "JSON")

	assert.Equal(t, "[当前时间: 2025-03-01 08:30:00]\n\n分析以下数据", cm.messages[1].Content)

	common := model.GetCommonOptions(nil, cm.opts...)
	require.NotNil(t, common.Temperature)
	assert.InDelta(t, 0.2, *common.Temperature, 1e-6)
}

func TestInvoke_RetriesRateLimit(t *testing.T) {
	cm := &fakeChatModel{
		errs:    []error{errors.New("error, status code: 429, Too Many Requests"), errors.New("503 service unavailable")},
		content: "done",
	}
	c := newTestClient(cm)

	out, err := c.Invoke(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, cm.calls)
}

func TestInvoke_GivesUp(t *testing.T) {
	rateLimited := errors.New("429 too many requests")
	cm := &fakeChatModel{errs: []error{rateLimited, rateLimited, rateLimited, rateLimited, rateLimited}}
	c := newTestClient(cm)

	_, err := c.Invoke(context.Background(), "sys", "user")
	assert.Error(t, err)
	assert.Equal(t, 4, cm.calls)
}

func TestInvoke_NoRetryOnOtherErrors(t *testing.T) {
	cm := &fakeChatModel{errs: []error{errors.New("invalid api key")}}
	c := newTestClient(cm)

	_, err := c.Invoke(context.Background(), "sys", "user")
	assert.Error(t, err)
	assert.Equal(t, 1, cm.calls)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(errors.New("Rate limit reached")))
	assert.False(t, IsRetryable(errors.New("400 bad request")))
	assert.True(t, IsRetryable(errors.New("error, status code: 500, status: 500 Internal Server Error")))
}

func TestIsRetryable_StatusCode(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("llm invoke: %w", err) }

	assert.True(t, IsRetryable(wrap(&goopenai.APIError{HTTPStatusCode: 500, Message: "internal"})))
	assert.True(t, IsRetryable(wrap(&goopenai.APIError{HTTPStatusCode: 429, Message: "slow down"})))
	assert.True(t, IsRetryable(wrap(&goopenai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")})))
	assert.False(t, IsRetryable(wrap(&goopenai.APIError{HTTPStatusCode: 401, Message: "rate limit key invalid"})))
	assert.False(t, IsRetryable(wrap(&goopenai.RequestError{HTTPStatusCode: 404, Err: errors.New("not found")})))
}
