package milvus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"HealthAgent/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		// 使用配置中的地址创建 Milvus 客户端。
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Milvus: %w", err)
			return
		}
		log.Println("✅ 成功连接到 Milvus!")
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
		log.Println("ℹ️ 已安全关闭 Milvus 连接。")
	}
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("Milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// EnsureCollection 按配置中的 Schema 创建集合（若不存在），并确保其已加载。
// 向量维度来自配置，写入与查询两侧共用同一常量，维度不匹配会在嵌入阶段提前失败。
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName

	has, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("无法检查集合 '%s' 是否存在: %w", collName, err)
	}

	if !has {
		schema := entity.NewSchema().WithName(collName).WithDescription(c.Config.Schema.Description)
		for _, f := range c.Config.Schema.Fields {
			field := entity.NewField().WithName(f.Name)
			switch f.DataType {
			case "VarChar":
				field.WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(f.MaxLength))
			case "FloatVector":
				field.WithDataType(entity.FieldTypeFloatVector).WithDim(int64(f.Dim))
			case "Int64":
				field.WithDataType(entity.FieldTypeInt64)
			default:
				return fmt.Errorf("不支持的字段类型: %s", f.DataType)
			}
			if f.IsPrimaryKey {
				field.WithIsPrimaryKey(true)
			}
			schema.WithField(field)
		}

		if err := c.Client.CreateCollection(ctx, schema, 1); err != nil {
			return fmt.Errorf("创建集合 '%s' 失败: %w", collName, err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.L2, 128)
		if err != nil {
			return fmt.Errorf("构建索引参数失败: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, collName, c.Config.Schema.VectorField, idx, false); err != nil {
			return fmt.Errorf("为集合 '%s' 创建索引失败: %w", collName, err)
		}
		log.Printf("✅ 成功创建集合: %s", collName)
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// FlushCollection 手动触发一次刷新操作，将内存中的数据写入磁盘。
func (c *MilvusClient) FlushCollection(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName
	flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.Client.Flush(flushCtx, collName, false); err != nil {
		return fmt.Errorf("刷新集合 '%s' 失败: %w", collName, err)
	}
	return nil
}
