package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HealthAgent/internal/agent/engine"
	"HealthAgent/internal/agent/intent"
	"HealthAgent/internal/agent/prompt"
	"HealthAgent/internal/agent/tools"
	"HealthAgent/internal/chat"
	"HealthAgent/internal/chat/api"
	"HealthAgent/internal/config"
	"HealthAgent/internal/database/kafka"
	"HealthAgent/internal/database/milvus"
	"HealthAgent/internal/database/mongo"
	"HealthAgent/internal/database/mysql"
	"HealthAgent/internal/database/redis"
	"HealthAgent/internal/healthdata"
	"HealthAgent/internal/history"
	"HealthAgent/internal/llm"
	"HealthAgent/internal/rag/embeddings"
	"HealthAgent/internal/rag/pipeline"
	"HealthAgent/internal/rag/splitters"
	"HealthAgent/internal/rag/vectorstore"
	"HealthAgent/pkg/logger"
	"HealthAgent/pkg/mcphost"
	"HealthAgent/pkg/ratelimiter"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// 1. 加载配置并初始化日志。
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("ChatService", "", "")
	appLogger.Info("Starting Chat Service...")

	ctx := context.Background()

	// 2. 初始化数据库连接。
	milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		log.Fatalf("连接 Milvus 失败: %v", err)
	}
	defer milvusClient.Close()
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		log.Fatalf("初始化 Milvus 集合失败: %v", err)
	}

	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		log.Fatalf("连接 MySQL 失败: %v", err)
	}
	defer mysql.Close()

	redisClient, err := redis.GetClient(&cfg.Databases.Redis)
	if err != nil {
		log.Fatalf("连接 Redis 失败: %v", err)
	}
	defer redis.Close()

	mongoClient, err := mongo.GetClient(&cfg.Databases.MongoDB)
	if err != nil {
		log.Fatalf("连接 MongoDB 失败: %v", err)
	}
	defer mongo.Close(ctx)

	// 3. RAG 子系统。
	embeddingModel, err := embeddings.NewModel(cfg.Embedding)
	if err != nil {
		log.Fatalf("初始化 Embedding 模型失败: %v", err)
	}
	batcher := embeddings.NewBatcher(embeddingModel, cfg.Embedding.Dimensions, appLogger)
	store, err := vectorstore.NewMilvusStore(milvusClient, cfg.Embedding.Dimensions, appLogger)
	if err != nil {
		log.Fatalf("初始化向量存储失败: %v", err)
	}
	splitter := splitters.NewStructureSplitter(cfg.RAG.Preprocess.ChunkSize)
	indexer := pipeline.NewIndexingPipeline(splitter, batcher, store,
		cfg.RAG.Preprocess.DefaultLanguage, cfg.RAG.MaxConcurrency, appLogger)
	retriever := pipeline.NewRetrievalPipeline(batcher, store, appLogger)

	// 4. 工具层。MCP 服务端连不上只降级，不阻塞启动。
	mcpHost := mcphost.NewHost()
	defer mcpHost.CloseAll()
	for _, server := range cfg.Tools.MCPServers {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := mcpHost.Connect(connectCtx, mcphost.ConnectOptions{
			ServerName:    server.Name,
			TransportType: server.Transport,
			Command:       server.Command,
			Args:          server.Args,
			URL:           server.URL,
		})
		cancel()
		if err != nil {
			appLogger.WithError(logger.ErrorInfo{Message: err.Error()}).
				Warn("MCP 服务端连接失败，相关工具将使用占位结果: " + server.Name)
		}
	}

	healthStore, err := healthdata.NewStore(db)
	if err != nil {
		log.Fatalf("初始化健康数据存储失败: %v", err)
	}

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewCalculator(),
		tools.NewHealthDatabase(healthStore),
		tools.NewChartGenerator(),
		tools.NewWebSearch(mcpHost, appLogger),
		tools.NewWeather(mcpHost, appLogger),
	} {
		if err := registry.Register(tool); err != nil {
			log.Fatalf("注册工具失败: %v", err)
		}
	}

	stats := engine.NewStats()
	timeouts := engine.Timeouts{
		Default: time.Duration(cfg.Tools.Timeouts.Compute) * time.Second,
		PerTool: map[string]time.Duration{
			"health_database": time.Duration(cfg.Tools.Timeouts.Database) * time.Second,
			"search":          time.Duration(cfg.Tools.Timeouts.Search) * time.Second,
			"weather":         time.Duration(cfg.Tools.Timeouts.Search) * time.Second,
		},
		Workflow: time.Duration(cfg.Tools.Timeouts.Workflow) * time.Second,
	}
	eng := engine.New(registry, stats, timeouts, appLogger)

	classifier, err := intent.NewClassifier(registry)
	if err != nil {
		log.Fatalf("意图表校验失败: %v", err)
	}

	// 5. LLM 与对话服务。
	model, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Fatalf("初始化 LLM 客户端失败: %v", err)
	}
	historyStore := history.NewStore(redisClient, mongoClient,
		cfg.Databases.MongoDB.Database, cfg.Chat.HistoryWindow, appLogger)

	var auditor chat.Auditor = chat.NoopAuditor{}
	if len(cfg.Databases.Kafka.Brokers) > 0 {
		kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			appLogger.WithError(logger.ErrorInfo{Message: err.Error()}).
				Warn("Kafka 不可用，审计事件将被丢弃")
		} else {
			publisher := chat.NewAuditPublisher(kafkaClient)
			defer publisher.Close()
			auditor = publisher
		}
	}

	chatService := chat.NewService(classifier, eng, retriever,
		prompt.NewAssembler(cfg.Chat.HistoryWindow), model, historyStore,
		auditor, cfg.RAG.TopK, appLogger)

	// 6. HTTP 服务。
	limiterCfg := cfg.Middleware.RateLimiter
	rate, capacity := limiterCfg.TokenBucket.Rate, limiterCfg.TokenBucket.Capacity
	if limiterCfg.Algorithm == "leakyBucket" {
		rate, capacity = limiterCfg.LeakyBucket.Rate, limiterCfg.LeakyBucket.Capacity
	}
	if rate <= 0 {
		rate, capacity = 50, 100
	}
	limiter, err := ratelimiter.New(limiterCfg.Algorithm, rate, capacity)
	if err != nil {
		log.Fatalf("初始化限流器失败: %v", err)
	}

	handler := api.NewHandler(chatService, indexer, stats, appLogger)
	router := api.SetupRouter(handler, cfg.Auth.JwtSecret, limiter)

	address := cfg.App.Address
	if address == "" {
		address = ":8080"
	}

	go func() {
		appLogger.Info("HTTP 服务监听于 " + address)
		if err := router.Run(address); err != nil {
			log.Fatalf("HTTP 服务退出: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down Chat Service...")
}
