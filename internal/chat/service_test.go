package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"HealthAgent/internal/agent/engine"
	"HealthAgent/internal/agent/intent"
	"HealthAgent/internal/agent/prompt"
	"HealthAgent/internal/agent/tools"
	"HealthAgent/internal/llm"
	"HealthAgent/internal/rag/schema"
	"HealthAgent/pkg/logger"
)

type fakeTool struct{ name string }

func (t *fakeTool) Name() string { return t.name }

func (t *fakeTool) Execute(ctx context.Context, action string, params map[string]interface{}) (*tools.Output, error) {
	if _, ok := params["user_id"]; !ok {
		return nil, fmt.Errorf("user_id not injected")
	}
	return &tools.Output{
		Data:       map[string]interface{}{},
		Summary:    t.name + " ok",
		Provenance: tools.ProvenanceReal,
	}, nil
}

type fakeRetriever struct {
	passages []*schema.Passage
	err      error
	calls    int
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]*schema.Passage, error) {
	r.calls++
	return r.passages, r.err
}

type memHistory struct {
	messages map[string][]llm.Message
}

func (h *memHistory) Recent(ctx context.Context, userID string) ([]llm.Message, error) {
	return h.messages[userID], nil
}

func (h *memHistory) Append(ctx context.Context, userID string, messages ...llm.Message) error {
	if h.messages == nil {
		h.messages = make(map[string][]llm.Message)
	}
	h.messages[userID] = append(h.messages[userID], messages...)
	return nil
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	return f.reply, f.err
}

func (f *fakeLLM) GenerateStream(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan llm.StreamChunk, 1)
	out <- llm.StreamChunk{Content: f.reply}
	close(out)
	return out, nil
}

func newTestService(t *testing.T, model llm.LLM, retriever *fakeRetriever, history *memHistory) *Service {
	t.Helper()
	logger.Init(logger.ParseLevel("error"))
	log := logger.New("chat_test", "", "")

	registry := tools.NewRegistry()
	for _, name := range []string{"calculator", "health_database", "chart_generator", "search", "weather"} {
		if err := registry.Register(&fakeTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}
	classifier, err := intent.NewClassifier(registry)
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.New(registry, engine.NewStats(), engine.Timeouts{
		Default:  time.Second,
		Workflow: 5 * time.Second,
	}, log)

	return NewService(classifier, eng, retriever, prompt.NewAssembler(6), model, history, NoopAuditor{}, 3, log)
}

func TestHandleUserMessageRunsToolsAndRetrieves(t *testing.T) {
	retriever := &fakeRetriever{passages: []*schema.Passage{{Text: "低盐饮食有助于控制血压。"}}}
	history := &memHistory{}
	s := newTestService(t, &fakeLLM{reply: "这是回答"}, retriever, history)

	reply, err := s.HandleUserMessage(context.Background(), "u1", "帮我制定一个运动锻炼计划", nil)
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}

	if reply.Intent != intent.ExercisePlanning {
		t.Errorf("intent = %s, want exercise_planning", reply.Intent)
	}
	if reply.Text != "这是回答" {
		t.Errorf("text = %q", reply.Text)
	}
	if reply.Degraded {
		t.Error("reply must not be degraded")
	}
	if len(reply.ToolsUsed) == 0 {
		t.Error("tools must have run for exercise_planning")
	}
	for _, r := range reply.ToolsUsed {
		if r.Status != engine.StatusSuccess {
			t.Errorf("tool %s status = %s (user_id injection broken?)", r.Name, r.Status)
		}
	}
	if retriever.calls != 1 {
		t.Errorf("retriever calls = %d, want 1", retriever.calls)
	}
	if len(reply.Sources) != 1 {
		t.Errorf("sources = %d, want 1", len(reply.Sources))
	}
	if got := len(history.messages["u1"]); got != 2 {
		t.Errorf("history entries = %d, want 2", got)
	}
}

func TestHandleUserMessageGeneralChatSkipsToolsAndRetrieval(t *testing.T) {
	retriever := &fakeRetriever{}
	s := newTestService(t, &fakeLLM{reply: "你好呀"}, retriever, &memHistory{})

	reply, err := s.HandleUserMessage(context.Background(), "u1", "今天心情不错", nil)
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}
	if reply.Intent != intent.GeneralChat {
		t.Errorf("intent = %s, want general_chat", reply.Intent)
	}
	if len(reply.ToolsUsed) != 0 {
		t.Errorf("general_chat must not run tools, got %d", len(reply.ToolsUsed))
	}
	if retriever.calls != 0 {
		t.Errorf("general_chat must not retrieve, got %d calls", retriever.calls)
	}
}

func TestHandleUserMessageDegradesOnModelFailure(t *testing.T) {
	s := newTestService(t, &fakeLLM{err: fmt.Errorf("model unreachable")}, &fakeRetriever{}, &memHistory{})

	reply, err := s.HandleUserMessage(context.Background(), "u1", "今天心情不错", nil)
	if err != nil {
		t.Fatalf("model failure must not surface as an error, got %v", err)
	}
	if !reply.Degraded {
		t.Error("reply must be marked degraded")
	}
	if reply.Text == "" || reply.Text == "model unreachable" {
		t.Errorf("degraded reply must be a canned message, got %q", reply.Text)
	}
}

func TestHandleUserMessageRetrievalFailureIsNonFatal(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("milvus down")}
	s := newTestService(t, &fakeLLM{reply: "仍然可以回答"}, retriever, &memHistory{})

	reply, err := s.HandleUserMessage(context.Background(), "u1", "什么是高血压", nil)
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}
	if reply.Text != "仍然可以回答" {
		t.Errorf("text = %q", reply.Text)
	}
	if len(reply.Sources) != 0 {
		t.Errorf("sources must be empty on retrieval failure, got %d", len(reply.Sources))
	}
}

func TestHandleUserMessageStream(t *testing.T) {
	s := newTestService(t, &fakeLLM{reply: "流式回答"}, &fakeRetriever{}, &memHistory{})

	stream, reply, err := s.HandleUserMessageStream(context.Background(), "u1", "今天心情不错", nil)
	if err != nil {
		t.Fatalf("HandleUserMessageStream: %v", err)
	}
	var full string
	for chunk := range stream {
		if chunk.Err != nil {
			t.Fatalf("chunk error: %v", chunk.Err)
		}
		full += chunk.Content
	}
	if full != "流式回答" {
		t.Errorf("streamed text = %q", full)
	}
	if reply.Intent != intent.GeneralChat {
		t.Errorf("intent = %s", reply.Intent)
	}
}

// recordsHealthDB stands in for the gorm-backed health database with the
// same output contract: a profile carries the measurements the calculator
// reads, recent records carry the labels/values the chart generator reads.
type recordsHealthDB struct{}

func (recordsHealthDB) Name() string { return "health_database" }

func (recordsHealthDB) Execute(ctx context.Context, action string, params map[string]interface{}) (*tools.Output, error) {
	if _, ok := params["user_id"]; !ok {
		return nil, fmt.Errorf("missing parameter %q", "user_id")
	}
	switch action {
	case "profile":
		return &tools.Output{
			Data: map[string]interface{}{
				"found":     true,
				"gender":    "male",
				"age":       30,
				"height_cm": 175.0,
				"weight_kg": 65.0,
			},
			Summary:    "用户档案",
			Provenance: tools.ProvenanceReal,
		}, nil
	case "recent_records":
		return &tools.Output{
			Data: map[string]interface{}{
				"records": []map[string]interface{}{},
				"count":   2,
				"labels":  []string{"2026-08-29", "2026-08-30"},
				"values":  []float64{118, 121},
			},
			Summary:    "最近 2 条记录",
			Provenance: tools.ProvenanceReal,
		}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

// newContractService wires the real calculator, chart generator and MCP
// tools so parameter-contract breaks between the intent table and the tool
// implementations surface in tests.
func newContractService(t *testing.T, retriever *fakeRetriever) *Service {
	t.Helper()
	logger.Init(logger.ParseLevel("error"))
	log := logger.New("chat_test", "", "")

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewCalculator(),
		tools.NewChartGenerator(),
		tools.NewWebSearch(nil, log),
		tools.NewWeather(nil, log),
		recordsHealthDB{},
	} {
		if err := registry.Register(tool); err != nil {
			t.Fatal(err)
		}
	}
	classifier, err := intent.NewClassifier(registry)
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.New(registry, engine.NewStats(), engine.Timeouts{
		Default:  time.Second,
		Workflow: 5 * time.Second,
	}, log)

	return NewService(classifier, eng, retriever, prompt.NewAssembler(6), &fakeLLM{reply: "好的"}, &memHistory{}, NoopAuditor{}, 3, log)
}

func resultByName(t *testing.T, results []*engine.ToolResult, name string) *engine.ToolResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("tool %s missing from results", name)
	return nil
}

func TestKnowledgeQueryFeedsMessageToSearch(t *testing.T) {
	s := newContractService(t, &fakeRetriever{})

	reply, err := s.HandleUserMessage(context.Background(), "u1", "什么是高血压", nil)
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}
	if reply.Intent != intent.KnowledgeQuery {
		t.Fatalf("intent = %s, want knowledge_query", reply.Intent)
	}
	search := resultByName(t, reply.ToolsUsed, "search")
	if search.Status != engine.StatusSuccess {
		t.Fatalf("search status = %s (%s)", search.Status, search.Error)
	}
	if got := search.Output.Data["query"]; got != "什么是高血压" {
		t.Errorf("search query = %v, want the user message", got)
	}
	// Without a connected MCP server the result must be a marked placeholder.
	if search.Output.Provenance != tools.ProvenancePlaceholder {
		t.Errorf("provenance = %s, want placeholder", search.Output.Provenance)
	}
}

func TestHealthAnalysisFeedsProfileIntoCalculator(t *testing.T) {
	s := newContractService(t, &fakeRetriever{})

	reply, err := s.HandleUserMessage(context.Background(), "u1", "帮我做个健康分析，算下bmi", nil)
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}
	if reply.Intent != intent.HealthAnalysis {
		t.Fatalf("intent = %s, want health_analysis", reply.Intent)
	}
	for _, r := range reply.ToolsUsed {
		if r.Status != engine.StatusSuccess {
			t.Errorf("tool %s.%s status = %s (%s)", r.Name, r.Action, r.Status, r.Error)
		}
	}
	calc := resultByName(t, reply.ToolsUsed, "calculator")
	// 65kg at 175cm from the profile output.
	if got := calc.Output.Data["bmi"]; got != 21.2 {
		t.Errorf("bmi = %v, want 21.2", got)
	}
}

func TestDataVisualizationFeedsRecordsIntoChart(t *testing.T) {
	s := newContractService(t, &fakeRetriever{})

	reply, err := s.HandleUserMessage(context.Background(), "u1", "帮我画图看看血压趋势", nil)
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}
	if reply.Intent != intent.DataVisualization {
		t.Fatalf("intent = %s, want data_visualization", reply.Intent)
	}
	chart := resultByName(t, reply.ToolsUsed, "chart_generator")
	if chart.Status != engine.StatusSuccess {
		t.Fatalf("chart status = %s (%s)", chart.Status, chart.Error)
	}
	spec, ok := chart.Output.Data["chart"].(map[string]interface{})
	if !ok {
		t.Fatalf("chart output missing spec: %v", chart.Output.Data)
	}
	if labels, ok := spec["labels"].([]string); !ok || len(labels) != 2 {
		t.Errorf("chart labels = %v, want the 2 record dates", spec["labels"])
	}
}

func TestHandleUserMessageEmptyMessage(t *testing.T) {
	s := newTestService(t, &fakeLLM{reply: "x"}, &fakeRetriever{}, &memHistory{})
	if _, err := s.HandleUserMessage(context.Background(), "u1", "", nil); err == nil {
		t.Fatal("expected error for empty message")
	}
}
