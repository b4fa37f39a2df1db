package kafka

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	"HealthAgent/internal/config"

	"github.com/segmentio/kafka-go"
)

// KafkaClient 持有 Kafka 管理连接和配置。
type KafkaClient struct {
	Conn   *kafka.Conn // 用于管理的连接
	Config *config.KafkaConfig
}

var (
	client  *KafkaClient
	once    sync.Once
	initErr error
)

// GetClient 使用单例模式初始化并返回一个 KafkaClient 实例。
// 首次调用时，它会连接到 Kafka 并根据配置自动创建所有必需的主题。
func GetClient(cfg *config.KafkaConfig) (*KafkaClient, error) {
	once.Do(func() {
		if len(cfg.Brokers) == 0 {
			initErr = fmt.Errorf("未配置 Kafka brokers")
			return
		}

		// 1. 建立管理连接
		conn, err := kafka.Dial("tcp", cfg.Brokers[0])
		if err != nil {
			initErr = fmt.Errorf("kafka 初始化连接失败: %w", err)
			return
		}

		// 2. 获取已存在的主题
		partitions, err := conn.ReadPartitions()
		if err != nil {
			initErr = fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
			conn.Close()
			return
		}
		existingTopics := make(map[string]struct{})
		for _, p := range partitions {
			existingTopics[p.Topic] = struct{}{}
		}

		// 3. 遍历并创建不存在的主题
		controller, err := conn.Controller()
		if err != nil {
			initErr = fmt.Errorf("无法获取 Kafka controller: %w", err)
			conn.Close()
			return
		}
		controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Kafka controller: %w", err)
			conn.Close()
			return
		}
		defer controllerConn.Close()

		for _, topic := range cfg.Topics {
			if _, ok := existingTopics[topic]; ok {
				continue
			}
			err := controllerConn.CreateTopics(kafka.TopicConfig{
				Topic:             topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			})
			if err != nil {
				initErr = fmt.Errorf("创建主题 '%s' 失败: %w", topic, err)
				conn.Close()
				return
			}
			log.Printf("✅ 已创建 Kafka 主题: %s", topic)
		}

		log.Println("✅ 成功连接到 Kafka!")
		client = &KafkaClient{Conn: conn, Config: cfg}
	})

	return client, initErr
}

// Close 关闭管理连接。
func (c *KafkaClient) Close() error {
	if c.Conn != nil {
		return c.Conn.Close()
	}
	return nil
}
