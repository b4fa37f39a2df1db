package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"HealthAgent/internal/llm"
	"HealthAgent/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Turn 是一条持久化的对话记录。
type Turn struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Store 维护两级对话历史：Redis 中保存每个用户最近的窗口，
// 供提示词组装快速读取；MongoDB 保存完整日志。
type Store struct {
	redis      *redis.Client
	collection *mongo.Collection
	window     int
	log        *logger.Logger
}

func NewStore(redisClient *redis.Client, mongoClient *mongo.Client, database string, window int, log *logger.Logger) *Store {
	if window <= 0 {
		window = 6
	}
	return &Store{
		redis:      redisClient,
		collection: mongoClient.Database(database).Collection("chat_history"),
		window:     window,
		log:        log,
	}
}

func recentKey(userID string) string {
	return "chat:recent:" + userID
}

// Append 记录一轮对话。Redis 窗口裁剪到配置长度；Mongo 写入失败只记日志，
// 不阻塞对话。
func (s *Store) Append(ctx context.Context, userID string, messages ...llm.Message) error {
	now := time.Now()
	key := recentKey(userID)

	pipe := s.redis.Pipeline()
	for _, m := range messages {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("序列化对话消息失败: %w", err)
		}
		pipe.RPush(ctx, key, payload)
	}
	// 窗口按消息条数计，每轮两条。
	pipe.LTrim(ctx, key, int64(-2*s.window), -1)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入最近对话窗口失败: %w", err)
	}

	docs := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		docs = append(docs, Turn{
			UserID:    userID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: now,
		})
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		s.log.WithError(logger.ErrorInfo{Message: err.Error()}).Warn("对话历史持久化到 MongoDB 失败")
	}
	return nil
}

// Recent 返回用户最近窗口内的消息，时间正序。
func (s *Store) Recent(ctx context.Context, userID string) ([]llm.Message, error) {
	raw, err := s.redis.LRange(ctx, recentKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("读取最近对话窗口失败: %w", err)
	}

	messages := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var m llm.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			s.log.WithError(logger.ErrorInfo{Message: err.Error()}).Warn("跳过无法解析的历史消息")
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// FullLog 从 MongoDB 读取用户的完整对话日志，时间正序，最多 limit 条。
func (s *Store) FullLog(ctx context.Context, userID string, limit int64) ([]Turn, error) {
	if limit <= 0 {
		limit = 200
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("查询对话日志失败: %w", err)
	}
	defer cursor.Close(ctx)

	var turns []Turn
	if err := cursor.All(ctx, &turns); err != nil {
		return nil, fmt.Errorf("解析对话日志失败: %w", err)
	}
	return turns, nil
}
