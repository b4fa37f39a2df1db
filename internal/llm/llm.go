package llm

import (
	"context"
	"fmt"
	"time"

	"HealthAgent/internal/config"
	"HealthAgent/pkg/circuitbreaker"
)

// Role 标识一条消息的说话者。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 是发送给模型的一条对话消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StreamChunk 是流式生成中的一个增量片段。Err 非空表示流异常结束。
type StreamChunk struct {
	Content string
	Err     error
}

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// GenerateStream 返回的通道在生成结束后关闭，每次调用只发起一个请求。
type LLM interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	GenerateStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error)
}

// NewClient 是一个工厂函数，根据配置创建对应提供商的客户端，
// 并用重试与熔断器包装它。
func NewClient(cfg config.LLMConfig) (LLM, error) {
	var inner LLM
	var err error

	switch cfg.Provider {
	case "openai":
		inner, err = NewOpenAI(cfg.OpenAI.Name, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case "ollama":
		inner, err = NewOllama(cfg.Ollama.Name, cfg.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	breaker := circuitbreaker.New(5, 2, 30*time.Second)
	return WithResilience(inner, attempts, breaker), nil
}
