package embeddings

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIModel 是一个用于 OpenAI 兼容 API 的 Embedding 模型客户端。
// 国内的嵌入服务（如 dashscope）同样通过该兼容端点接入。
type OpenAIModel struct {
	client     *openai.Client // OpenAI 客户端实例。
	model      string         // 要使用的模型名称。
	dimensions int            // 请求的向量维度。
}

// NewOpenAIModel 创建一个新的 OpenAIModel 客户端。
//
// 参数:
//
//	apiKey: API 密钥。
//	baseURL: 兼容端点地址，为空时使用官方默认地址。
//	modelName: 要使用的模型名称。
//	dimensions: 请求的向量维度。
func NewOpenAIModel(apiKey, baseURL, modelName string, dimensions int) (*OpenAIModel, error) {
	// 使用 API 密钥创建默认配置。
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(cfg)
	return &OpenAIModel{client: client, model: modelName, dimensions: dimensions}, nil
}

// Embed 为单个文本生成嵌入向量。
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch 为一批文本生成嵌入向量。
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	// 构建 OpenAI Embedding 请求。
	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(m.model),
		Dimensions: m.dimensions,
	}

	// 调用 OpenAI API 创建嵌入向量。
	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	// 检查是否返回了嵌入向量。
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// 将结果转换为 [][]float32 格式。
	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}

	return embeddings, nil
}
