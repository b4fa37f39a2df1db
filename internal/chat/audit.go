package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"HealthAgent/internal/agent/engine"
	"HealthAgent/internal/agent/intent"
	dbkafka "HealthAgent/internal/database/kafka"

	"github.com/segmentio/kafka-go"
)

// WorkflowAuditTopic 是工作流审计事件写入的 Kafka 主题。
const WorkflowAuditTopic = "workflow_audit"

// auditEvent 是写入审计主题的载荷。
type auditEvent struct {
	UserID    string          `json:"user_id"`
	Intent    string          `json:"intent"`
	Mode      string          `json:"mode"`
	Partial   bool            `json:"partial"`
	Duration  string          `json:"duration"`
	Results   []auditToolCall `json:"results"`
	Timestamp time.Time       `json:"timestamp"`
}

type auditToolCall struct {
	Name       string `json:"name"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	Provenance string `json:"provenance,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// AuditPublisher 将已完成的工具工作流发布到 Kafka 审计主题。
type AuditPublisher struct {
	writer *kafka.Writer
}

// NewAuditPublisher 为审计主题创建一个 writer。
func NewAuditPublisher(client *dbkafka.KafkaClient) *AuditPublisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      client.Config.Brokers,
		Topic:        WorkflowAuditTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	})
	return &AuditPublisher{writer: writer}
}

// PublishWorkflow 序列化并发送一条审计事件。
func (p *AuditPublisher) PublishWorkflow(ctx context.Context, userID string, it intent.Intent, workflow *engine.WorkflowResult) error {
	event := auditEvent{
		UserID:    userID,
		Intent:    string(it),
		Mode:      string(workflow.Mode),
		Partial:   workflow.Partial,
		Duration:  workflow.Duration.String(),
		Timestamp: time.Now(),
	}
	for _, r := range workflow.Results {
		call := auditToolCall{
			Name:       r.Name,
			Action:     r.Action,
			Status:     string(r.Status),
			DurationMs: r.Duration.Milliseconds(),
			Error:      r.Error,
		}
		if r.Output != nil {
			call.Provenance = string(r.Output.Provenance)
		}
		event.Results = append(event.Results, call)
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID),
		Value: jsonData,
	})
	if err != nil {
		return fmt.Errorf("failed to write audit event to kafka: %w", err)
	}
	return nil
}

// Close 关闭底层的 writer 连接。
func (p *AuditPublisher) Close() error {
	return p.writer.Close()
}

// NoopAuditor 在未配置 Kafka 时使用。
type NoopAuditor struct{}

func (NoopAuditor) PublishWorkflow(ctx context.Context, userID string, it intent.Intent, workflow *engine.WorkflowResult) error {
	return nil
}
