package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI 兼容端点的 LLM 客户端。
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI 创建一个新的 OpenAI 客户端。baseURL 为空时使用官方端点。
func NewOpenAI(model, apiKey, baseURL string) (*OpenAI, error) {
	if model == "" {
		return nil, fmt.Errorf("openai model name is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Generate 使用 OpenAI API 生成完整回复。
func (o *OpenAI) Generate(ctx context.Context, messages []Message) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream 使用 OpenAI API 以流式方式生成回复。
func (o *OpenAI) GenerateStream(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				out <- StreamChunk{Err: err}
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content != "" {
					out <- StreamChunk{Content: choice.Delta.Content}
				}
			}
		}
	}()
	return out, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}
