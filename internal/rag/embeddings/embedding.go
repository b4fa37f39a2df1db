package embeddings

import (
	"fmt"

	"HealthAgent/internal/config"
	"HealthAgent/internal/rag/interfaces"
)

// NewModel 是一个工厂函数，根据配置创建并返回一个实现了 EmbeddingModel 接口的客户端。
func NewModel(cfg config.EmbeddingConfig) (interfaces.EmbeddingModel, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Name, cfg.Dimensions)
	case "ollama":
		return NewOllamaModel(cfg.Ollama.Name, cfg.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
