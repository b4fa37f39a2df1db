package redis

import (
	"context"
	"fmt"
	"log"
	"sync"

	"HealthAgent/internal/config"

	"github.com/go-redis/redis/v8"
)

var (
	client  *redis.Client
	once    sync.Once
	initErr error
)

// GetClient 返回进程唯一的 Redis 客户端，用作对话历史的近期窗口缓存。
// 首次调用时建连并 Ping 校验，失败会原样返回给后续调用方。
func GetClient(cfg *config.RedisConfig) (*redis.Client, error) {
	once.Do(func() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			initErr = fmt.Errorf("无法连接到 Redis: %w", err)
			return
		}

		log.Println("✅ 成功连接到 Redis!")
		client = rdb
	})

	return client, initErr
}

// Close 关闭单例连接，服务退出时调用。
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}
