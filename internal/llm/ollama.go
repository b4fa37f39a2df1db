package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client
	model  string
}

// NewOllama 创建一个新的 Ollama 客户端。
// baseURL 为空时默认为 "http://localhost:11434"。
func NewOllama(model, baseURL string) (*Ollama, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := &http.Client{Timeout: 120 * time.Second}
	return &Ollama{client: olla.NewClient(parsedURL, hc), model: model}, nil
}

// Generate 使用 Ollama API 生成完整回复。
func (o *Ollama) Generate(ctx context.Context, messages []Message) (string, error) {
	stream := false
	var sb strings.Builder

	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  o.model,
		Prompt: toOllamaPrompt(messages),
		Stream: &stream,
	}, func(resp olla.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content with ollama: %w", err)
	}
	return sb.String(), nil
}

// GenerateStream 使用 Ollama API 以流式方式生成回复。
func (o *Ollama) GenerateStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	stream := true
	out := make(chan StreamChunk)

	go func() {
		defer close(out)
		err := o.client.Generate(ctx, &olla.GenerateRequest{
			Model:  o.model,
			Prompt: toOllamaPrompt(messages),
			Stream: &stream,
		}, func(resp olla.GenerateResponse) error {
			if resp.Response != "" {
				out <- StreamChunk{Content: resp.Response}
			}
			return nil
		})
		if err != nil {
			out <- StreamChunk{Err: err}
		}
	}()
	return out, nil
}

// toOllamaPrompt 将对话消息拼接为单个提示串，Ollama 的 generate
// 接口不区分消息角色。
func toOllamaPrompt(messages []Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
