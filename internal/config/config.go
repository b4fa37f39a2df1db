package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
	Address     string `yaml:"address"`     // HTTP 监听地址 (例如: ":8080")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// AuthConfig 用于配置聊天接口的认证设置。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
	TokenTTL  int    `yaml:"tokenTTL"`  // JWT 令牌的有效期（秒）
}

// ModelConfig 描述一个具体的模型端点。
type ModelConfig struct {
	Name    string `yaml:"name"`    // 模型名称
	APIKey  string `yaml:"apiKey"`  // API 密钥
	BaseURL string `yaml:"baseURL"` // API 基准地址 (兼容 OpenAI 协议的网关地址)
}

// LLMConfig 包含了不同 LLM 提供商的配置。
type LLMConfig struct {
	Provider   string      `yaml:"provider"`   // LLM 提供商 (例如: "openai", "ollama")
	OpenAI     ModelConfig `yaml:"openai"`     // OpenAI 兼容端点配置
	Ollama     ModelConfig `yaml:"ollama"`     // Ollama 本地模型配置
	MaxRetries int         `yaml:"maxRetries"` // 瞬态错误的最大重试次数
}

// EmbeddingConfig 包含了不同 Embedding 提供商的配置。
type EmbeddingConfig struct {
	Provider   string      `yaml:"provider"`   // Embedding 提供商 (例如: "openai", "ollama")
	OpenAI     ModelConfig `yaml:"openai"`     // OpenAI 兼容端点配置
	Ollama     ModelConfig `yaml:"ollama"`     // Ollama 本地模型配置
	Dimensions int         `yaml:"dimensions"` // 向量维度，必须与 Milvus 集合 Schema 保持一致
}

// PreprocessConfig 定义了文档预处理的行为。
type PreprocessConfig struct {
	DefaultLanguage string `yaml:"defaultLanguage"` // 语言检测无法判定时的默认语言
	ChunkSize       int    `yaml:"chunkSize"`       // 目标分段长度（字符数）
}

// RAGConfig 定义了检索增强生成子系统的配置。
type RAGConfig struct {
	TopK           int              `yaml:"topK"`           // 检索返回的候选段落数
	MaxConcurrency int              `yaml:"maxConcurrency"` // 对外部向量/嵌入服务的最大并发请求数
	Preprocess     PreprocessConfig `yaml:"preprocess"`     // 预处理配置
}

// ToolTimeoutConfig 定义了各类工具的超时时间（秒）。
// 这些值是经验常量而非协议约定，全部可调。
type ToolTimeoutConfig struct {
	Database int `yaml:"database"` // 数据库查询类工具
	Search   int `yaml:"search"`   // 外部搜索类工具
	Compute  int `yaml:"compute"`  // 纯计算类工具
	Workflow int `yaml:"workflow"` // 整个工作流的兜底上限
}

// MCPServerConfig 描述一个外部 MCP 工具服务端。
type MCPServerConfig struct {
	Name      string   `yaml:"name"`      // 服务端名称
	Transport string   `yaml:"transport"` // 传输方式: "stdio" 或 "http-sse"
	Command   string   `yaml:"command"`   // stdio 模式下的启动命令
	Args      []string `yaml:"args"`      // 启动参数
	URL       string   `yaml:"url"`       // http-sse 模式下的服务地址
}

// ToolsConfig 定义了工具执行引擎的配置。
type ToolsConfig struct {
	Timeouts   ToolTimeoutConfig `yaml:"timeouts"`   // 分类超时
	MCPServers []MCPServerConfig `yaml:"mcpServers"` // 外部工具服务端列表
}

// ChatConfig 定义了对话服务的行为。
type ChatConfig struct {
	HistoryWindow int `yaml:"historyWindow"` // 注入提示词的最近对话轮数
}

// FieldConfig 定义了 Milvus 集合中字段的配置。
type FieldConfig struct {
	Name         string `yaml:"name"`                // 字段名称
	DataType     string `yaml:"dataType"`            // 字段数据类型 (例如: "VarChar", "FloatVector")
	IsPrimaryKey bool   `yaml:"isPrimaryKey"`        // 是否为主键
	Dim          int    `yaml:"dim,omitempty"`       // 向量维度 (仅适用于向量类型)
	MaxLength    int    `yaml:"maxLength,omitempty"` // 最大长度 (仅适用于VarChar类型)
}

// SchemaConfig 定义了 Milvus 集合的 Schema 配置。
type SchemaConfig struct {
	CollectionName string        `yaml:"collectionName"` // 集合名称
	Description    string        `yaml:"description"`    // 集合描述
	VectorField    string        `yaml:"vectorField"`    // 向量字段名称
	Fields         []FieldConfig `yaml:"fields"`         // 字段配置列表
}

// MilvusConfig 定义了 Milvus 数据库的连接和 Schema 配置。
type MilvusConfig struct {
	Address string       `yaml:"address"` // Milvus 服务地址
	Schema  SchemaConfig `yaml:"schema"`  // Milvus 集合 Schema 配置
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 文档存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topics  []string `yaml:"topics"`  // Kafka 主题列表
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Milvus  MilvusConfig `yaml:"milvus"`  // Milvus 数据库配置
	Redis   RedisConfig  `yaml:"redis"`   // Redis 数据库配置
	MySQL   MySQLConfig  `yaml:"mysql"`   // MySQL 数据库配置
	MinIO   MinIOConfig  `yaml:"minio"`   // MinIO 对象存储配置
	MongoDB MongoConfig  `yaml:"mongodb"` // MongoDB 数据库配置
	Kafka   KafkaConfig  `yaml:"kafka"`   // Kafka 消息队列配置
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "tokenBucket", "leakyBucket"
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
	LeakyBucket LeakyBucketConfig `yaml:"leakyBucket"`
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// LeakyBucketConfig 定义了漏桶算法的配置。
type LeakyBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置部分
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // Embedding 配置部分
	RAG        RAGConfig        `yaml:"rag"`        // 检索增强生成配置
	Tools      ToolsConfig      `yaml:"tools"`      // 工具执行配置
	Chat       ChatConfig       `yaml:"chat"`       // 对话服务配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig // 声明一个AppConfig变量用于存储解析后的配置。
	// 将 YAML 内容解析到 cfg 结构体中。
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults 为缺省项填充默认值，使单测和最小化配置都能直接运行。
func (cfg *AppConfig) applyDefaults() {
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.MaxConcurrency == 0 {
		cfg.RAG.MaxConcurrency = 4
	}
	if cfg.RAG.Preprocess.ChunkSize == 0 {
		cfg.RAG.Preprocess.ChunkSize = 400
	}
	if cfg.RAG.Preprocess.DefaultLanguage == "" {
		// 历史行为：无法判定时按中文处理。见 PreprocessConfig。
		cfg.RAG.Preprocess.DefaultLanguage = "chinese"
	}
	if cfg.Tools.Timeouts.Database == 0 {
		cfg.Tools.Timeouts.Database = 10
	}
	if cfg.Tools.Timeouts.Search == 0 {
		cfg.Tools.Timeouts.Search = 15
	}
	if cfg.Tools.Timeouts.Compute == 0 {
		cfg.Tools.Timeouts.Compute = 5
	}
	if cfg.Tools.Timeouts.Workflow == 0 {
		cfg.Tools.Timeouts.Workflow = 120
	}
	if cfg.Chat.HistoryWindow == 0 {
		cfg.Chat.HistoryWindow = 6
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}
}
