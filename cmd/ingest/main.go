package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"HealthAgent/internal/config"
	"HealthAgent/internal/database/milvus"
	"HealthAgent/internal/database/minio"
	"HealthAgent/internal/rag/embeddings"
	"HealthAgent/internal/rag/loaders"
	"HealthAgent/internal/rag/pipeline"
	"HealthAgent/internal/rag/splitters"
	"HealthAgent/internal/rag/vectorstore"
	"HealthAgent/pkg/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	dir := flag.String("dir", "", "要入库的本地目录")
	pattern := flag.String("pattern", "**", "目录内匹配文件的 glob 模式")
	url := flag.String("url", "", "要入库的网页地址")
	bucket := flag.String("bucket", "", "MinIO 桶名")
	object := flag.String("object", "", "MinIO 对象名")
	workers := flag.Int("workers", 4, "并发入库的文件数")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("Ingest", "", "")

	ctx := context.Background()

	milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		log.Fatalf("连接 Milvus 失败: %v", err)
	}
	defer milvusClient.Close()
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		log.Fatalf("初始化 Milvus 集合失败: %v", err)
	}

	embeddingModel, err := embeddings.NewModel(cfg.Embedding)
	if err != nil {
		log.Fatalf("初始化 Embedding 模型失败: %v", err)
	}
	batcher := embeddings.NewBatcher(embeddingModel, cfg.Embedding.Dimensions, appLogger)
	store, err := vectorstore.NewMilvusStore(milvusClient, cfg.Embedding.Dimensions, appLogger)
	if err != nil {
		log.Fatalf("初始化向量存储失败: %v", err)
	}
	indexer := pipeline.NewIndexingPipeline(
		splitters.NewStructureSplitter(cfg.RAG.Preprocess.ChunkSize),
		batcher, store,
		cfg.RAG.Preprocess.DefaultLanguage, cfg.RAG.MaxConcurrency, appLogger)

	switch {
	case *url != "":
		report, err := indexer.RunURL(ctx, *url)
		if err != nil {
			log.Fatalf("入库失败: %v", err)
		}
		printReport(report)

	case *bucket != "" && *object != "":
		localPath := filepath.Join(os.TempDir(), filepath.Base(*object))
		if err := minio.FetchObject(ctx, *bucket, *object, localPath); err != nil {
			log.Fatalf("下载 MinIO 对象失败: %v", err)
		}
		defer os.Remove(localPath)
		report, err := indexer.RunFile(ctx, localPath)
		if err != nil {
			log.Fatalf("入库失败: %v", err)
		}
		printReport(report)

	case *dir != "":
		paths, err := loaders.ExpandDir(*dir, *pattern)
		if err != nil {
			log.Fatalf("展开目录失败: %v", err)
		}
		if len(paths) == 0 {
			log.Fatalf("目录 %s 下没有匹配 %s 的文件", *dir, *pattern)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(*workers)
		for _, path := range paths {
			g.Go(func() error {
				report, err := indexer.RunFile(gctx, path)
				if err != nil {
					// 单个文件失败不终止整个批次。
					appLogger.WithError(logger.ErrorInfo{Message: err.Error()}).
						Error("文件入库失败: " + path)
					return nil
				}
				printReport(report)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			log.Fatalf("批量入库失败: %v", err)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func printReport(report *pipeline.IndexReport) {
	fmt.Printf("%s: 共 %d 段，入库 %d 段，参考文献 %d 段，失败 %d 段\n",
		report.Path, report.TotalSegments, report.Indexed,
		report.ReferenceSegments, len(report.FailedSegments))
}
