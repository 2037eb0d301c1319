package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/logger"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/metrics"
)

// jsonInstruction JSON 模式下追加到系统提示词的约束
const jsonInstruction = "你是一个 JSON 生成器。请只输出 JSON 字符串，不要包含任何 markdown 标记或解释文字。"

// Invoker 各阶段依赖的 LLM 调用接口
type Invoker interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error)
}

// Options 单次调用参数
type Options struct {
	JSONMode    bool
	Temperature *float32
}

// Option 调用参数设置函数
type Option func(*Options)

// WithJSONMode 要求模型只输出 JSON
func WithJSONMode() Option {
	return func(o *Options) { o.JSONMode = true }
}

// WithTemperature 设置采样温度
func WithTemperature(t float32) Option {
	return func(o *Options) { o.Temperature = &t }
}

// Client 基于 eino ChatModel 的 LLM 客户端，带限流与重试
type Client struct {
	chatModel model.BaseChatModel
	limiter   *rate.Limiter
	retry     retrypolicy.RetryPolicy[*schema.Message]
	now       func() time.Time
}

var _ Invoker = (*Client)(nil)

// NewClient 根据配置创建 OpenAI 兼容的 LLM 客户端
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	limit := rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
	limiter := rate.NewLimiter(limit, cfg.Concurrency.QPS)
	logger.Log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", limit, cfg.Concurrency.QPS)

	baseDelay := time.Duration(cfg.LLM.RetryDelay) * time.Second
	return NewWithModel(chatModel, limiter, cfg.LLM.MaxRetries, baseDelay), nil
}

// NewWithModel 使用已有的 ChatModel 创建客户端
func NewWithModel(cm model.BaseChatModel, limiter *rate.Limiter, maxRetries int, baseDelay time.Duration) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &Client{
		chatModel: cm,
		limiter:   limiter,
		retry:     newRetryPolicy(maxRetries, baseDelay),
		now:       time.Now,
	}
}

// newRetryPolicy 仅对限流与服务端错误进行指数退避重试
func newRetryPolicy(maxRetries int, baseDelay time.Duration) retrypolicy.RetryPolicy[*schema.Message] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retrypolicy.NewBuilder[*schema.Message]().
		HandleIf(func(_ *schema.Message, err error) bool {
			return IsRetryable(err)
		}).
		WithBackoff(baseDelay, baseDelay*time.Duration(1<<maxRetries)).
		WithMaxRetries(maxRetries).
		OnRetry(func(e failsafe.ExecutionEvent[*schema.Message]) {
			logger.Log.Warnf("LLM 调用被限流或服务端错误，第 %d 次重试: %v", e.Attempts(), e.LastError())
		}).
		Build()
}

// Invoke 调用 LLM 并返回文本
//
// 用户提示词前会附加当前时间；返回的文本不保证是合法 JSON。
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	if o.JSONMode {
		systemPrompt = strings.TrimSpace(systemPrompt + "\n" + jsonInstruction)
	}
	userPrompt = fmt.Sprintf("[当前时间: %s]\n\n%s", c.now().Format("2006-01-02 15:04:05"), userPrompt)

	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: userPrompt},
	}

	var modelOpts []model.Option
	if o.Temperature != nil {
		modelOpts = append(modelOpts, model.WithTemperature(*o.Temperature))
	}

	start := time.Now()
	resp, err := failsafe.With(c.retry).WithContext(ctx).Get(func() (*schema.Message, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.chatModel.Generate(ctx, messages, modelOpts...)
	})
	metrics.ObserveLLMCall(time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("llm invoke: %w", err)
	}
	if resp == nil {
		return "", errors.New("llm invoke: empty response")
	}

	return resp.Content, nil
}

// IsRetryable 判断错误是否为限流或服务端临时错误
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code == 429 || code >= 500
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"429", "too many requests", "rate limit", "500", "502", "503", "504"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// statusCode 取出接口返回的 HTTP 状态码，拿不到时为 0
func statusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
