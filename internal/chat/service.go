package chat

import (
	"context"
	"fmt"

	"HealthAgent/internal/agent/engine"
	"HealthAgent/internal/agent/intent"
	"HealthAgent/internal/agent/prompt"
	"HealthAgent/internal/llm"
	"HealthAgent/internal/rag/schema"
	"HealthAgent/pkg/logger"
)

// degradedReply is returned when the model is unreachable after retries.
// The user never sees a raw error.
const degradedReply = "抱歉，我这边暂时出了点问题，请稍后再试。如果是紧急健康问题，请直接咨询医生或拨打急救电话。"

// Retriever feeds knowledge passages into the prompt.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]*schema.Passage, error)
}

// History is the conversation memory read/write surface.
type History interface {
	Recent(ctx context.Context, userID string) ([]llm.Message, error)
	Append(ctx context.Context, userID string, messages ...llm.Message) error
}

// Auditor receives finished workflows; publishing is best effort.
type Auditor interface {
	PublishWorkflow(ctx context.Context, userID string, it intent.Intent, workflow *engine.WorkflowResult) error
}

// Reply is the assembled answer for one user message.
type Reply struct {
	Text       string               `json:"text"`
	Intent     intent.Intent        `json:"intent"`
	Confidence float64              `json:"confidence"`
	ToolsUsed  []*engine.ToolResult `json:"tools_used,omitempty"`
	Sources    []*schema.Passage    `json:"sources,omitempty"`
	Degraded   bool                 `json:"degraded,omitempty"`
}

// Service orchestrates one chat turn: classify, run tools, retrieve
// knowledge, assemble the prompt, complete, remember.
type Service struct {
	classifier *intent.Classifier
	engine     *engine.Engine
	retriever  Retriever
	assembler  *prompt.Assembler
	model      llm.LLM
	history    History
	auditor    Auditor
	topK       int
	log        *logger.Logger
}

func NewService(
	classifier *intent.Classifier,
	eng *engine.Engine,
	retriever Retriever,
	assembler *prompt.Assembler,
	model llm.LLM,
	history History,
	auditor Auditor,
	topK int,
	log *logger.Logger,
) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		classifier: classifier,
		engine:     eng,
		retriever:  retriever,
		assembler:  assembler,
		model:      model,
		history:    history,
		auditor:    auditor,
		topK:       topK,
		log:        log,
	}
}

// prepare runs everything up to the model call and returns the prompt
// messages plus the reply skeleton.
func (s *Service) prepare(ctx context.Context, userID, message string, reqContext map[string]interface{}) ([]llm.Message, *Reply, error) {
	if message == "" {
		return nil, nil, fmt.Errorf("message must not be empty")
	}

	candidates := s.classifier.Classify(message)
	top := candidates[0]
	def, _ := s.classifier.Definition(top.Intent)

	reply := &Reply{Intent: top.Intent, Confidence: top.Confidence}

	calls := s.classifier.CallsFor(top.Intent)
	var workflow *engine.WorkflowResult
	if len(calls) > 0 {
		for _, call := range calls {
			for k, v := range reqContext {
				call.Params[k] = v
			}
			call.Params["user_id"] = userID
			// The user message is the default query for search-style tools;
			// an explicit query from the request context wins.
			if _, ok := call.Params["query"]; !ok {
				call.Params["query"] = message
			}
		}
		var err error
		workflow, err = s.engine.Execute(ctx, calls, def.Mode)
		if err != nil {
			return nil, nil, fmt.Errorf("tool workflow failed: %w", err)
		}
		reply.ToolsUsed = workflow.Results
		if err := s.auditor.PublishWorkflow(ctx, userID, top.Intent, workflow); err != nil {
			s.log.WithError(logger.ErrorInfo{Message: err.Error()}).Warn("工作流审计发布失败")
		}
	}

	if def.NeedsRetrieval {
		passages, err := s.retriever.Retrieve(ctx, message, s.topK)
		if err != nil {
			// Retrieval is additive context; the chat continues without it.
			s.log.WithError(logger.ErrorInfo{Message: err.Error()}).Warn("知识检索失败，继续无参考资料回答")
		} else {
			reply.Sources = passages
		}
	}

	recent, err := s.history.Recent(ctx, userID)
	if err != nil {
		s.log.WithError(logger.ErrorInfo{Message: err.Error()}).Warn("读取对话历史失败")
		recent = nil
	}

	messages := s.assembler.Assemble(message, top.Intent, workflow, reply.Sources, recent)
	return messages, reply, nil
}

func (s *Service) remember(ctx context.Context, userID, userMsg, assistantMsg string) {
	err := s.history.Append(ctx, userID,
		llm.Message{Role: llm.RoleUser, Content: userMsg},
		llm.Message{Role: llm.RoleAssistant, Content: assistantMsg},
	)
	if err != nil {
		s.log.WithError(logger.ErrorInfo{Message: err.Error()}).Warn("写入对话历史失败")
	}
}

// HandleUserMessage processes one chat turn and returns the full reply.
func (s *Service) HandleUserMessage(ctx context.Context, userID, message string, reqContext map[string]interface{}) (*Reply, error) {
	messages, reply, err := s.prepare(ctx, userID, message, reqContext)
	if err != nil {
		return nil, err
	}

	text, err := s.model.Generate(ctx, messages)
	if err != nil {
		s.log.WithError(logger.ErrorInfo{Message: err.Error()}).Error("模型生成失败，返回降级回复")
		reply.Text = degradedReply
		reply.Degraded = true
	} else {
		reply.Text = text
	}

	s.remember(ctx, userID, message, reply.Text)
	return reply, nil
}

// HandleUserMessageStream is the streaming variant. The returned channel is
// closed when generation finishes; the Reply carries the workflow and
// sources, with Text filled in once the stream ends.
func (s *Service) HandleUserMessageStream(ctx context.Context, userID, message string, reqContext map[string]interface{}) (<-chan llm.StreamChunk, *Reply, error) {
	messages, reply, err := s.prepare(ctx, userID, message, reqContext)
	if err != nil {
		return nil, nil, err
	}

	stream, err := s.model.GenerateStream(ctx, messages)
	if err != nil {
		s.log.WithError(logger.ErrorInfo{Message: err.Error()}).Error("模型流式生成失败，返回降级回复")
		reply.Text = degradedReply
		reply.Degraded = true
		out := make(chan llm.StreamChunk, 1)
		out <- llm.StreamChunk{Content: degradedReply}
		close(out)
		s.remember(ctx, userID, message, degradedReply)
		return out, reply, nil
	}

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		var full string
		for chunk := range stream {
			if chunk.Err == nil {
				full += chunk.Content
			}
			out <- chunk
		}
		reply.Text = full
		s.remember(context.WithoutCancel(ctx), userID, message, full)
	}()
	return out, reply, nil
}
