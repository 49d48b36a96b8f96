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
	"golang.org/x/time/rate"

	"github.com/iWorld-y/churn_radar/internal/config"
	"github.com/iWorld-y/churn_radar/internal/logger"
)

// ErrEmptyCompletion LLM 返回了空内容
var ErrEmptyCompletion = errors.New("llm returned an empty completion")

const promptTpl = `Analyze the following data about customer churn from %s to %s. Identify reasons for churn, potential warning signs, and summarize the key insights:

Data: %s

Output format:
- Reasons for churn
- Warning signs (e.g., customer sentiment, stock trends, market indicators)
- Conclusion`

// Generator 是 eino ChatModel 中本包用到的部分
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Analyzer 调用 LLM 对搜索到的流失数据做总结
type Analyzer struct {
	cm      Generator
	limiter *rate.Limiter
}

// New 使用现成的 Generator 创建 Analyzer，limiter 可为 nil
func New(cm Generator, limiter *rate.Limiter) *Analyzer {
	return &Analyzer{cm: cm, limiter: limiter}
}

// NewAnalyzer 用本次请求的 apiKey 初始化 OpenAI 兼容的 ChatModel
func NewAnalyzer(ctx context.Context, cfg config.LLMConfig, apiKey string, limiter *rate.Limiter) (*Analyzer, error) {
	maxTokens := cfg.MaxTokens
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    apiKey,
		Model:     cfg.Model,
		MaxTokens: &maxTokens,
		Timeout:   time.Duration(cfg.Timeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model failed: %w", err)
	}
	return New(chatModel, limiter), nil
}

// NewLimiter 按 RPM/QPS 配置构造限流器，RPM 未配置时不限流
func NewLimiter(c config.ConcurrencyConfig) *rate.Limiter {
	if c.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := c.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(c.RPM)/60.0), burst)
}

// BuildPrompt 生成流失分析提示词
func BuildPrompt(data, company, competitor string) string {
	return fmt.Sprintf(promptTpl, company, competitor, data)
}

// Analyze 生成流失原因分析文本，只调用一次，不做重试
func (a *Analyzer) Analyze(ctx context.Context, data, company, competitor string) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("limiter wait error: %w", err)
		}
	}

	messages := []*schema.Message{
		schema.UserMessage(BuildPrompt(data, company, competitor)),
	}

	start := time.Now()
	resp, err := a.cm.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	logger.Log.Debugf("LLM 分析完成 [%s -> %s]，耗时 %v", company, competitor, time.Since(start))

	if resp == nil {
		return "", ErrEmptyCompletion
	}
	analysis := strings.TrimSpace(resp.Content)
	if analysis == "" {
		return "", ErrEmptyCompletion
	}
	return analysis, nil
}
