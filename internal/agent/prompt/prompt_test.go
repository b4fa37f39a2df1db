package prompt

import (
	"reflect"
	"strings"
	"testing"

	"HealthAgent/internal/agent/engine"
	"HealthAgent/internal/agent/intent"
	"HealthAgent/internal/agent/tools"
	"HealthAgent/internal/llm"
	"HealthAgent/internal/rag/schema"
)

func sampleWorkflow() *engine.WorkflowResult {
	return &engine.WorkflowResult{
		Mode: engine.ModeParallel,
		Results: []*engine.ToolResult{
			{
				Name:   "calculator",
				Action: "bmi",
				Status: engine.StatusSuccess,
				Output: &tools.Output{Summary: "BMI 21.2（正常）", Provenance: tools.ProvenanceReal},
			},
			{
				Name:   "weather",
				Action: "current",
				Status: engine.StatusSuccess,
				Output: &tools.Output{Summary: "北京天气暂无实时数据", Provenance: tools.ProvenancePlaceholder},
			},
			{
				Name:   "search",
				Action: "query",
				Status: engine.StatusFailed,
				Error:  "backend unreachable",
			},
		},
	}
}

func TestAssembleStructure(t *testing.T) {
	a := NewAssembler(4)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "你好"},
		{Role: llm.RoleAssistant, Content: "你好，有什么可以帮你？"},
	}
	passages := []*schema.Passage{{Text: "成人正常 BMI 范围为 18.5 到 23.9。"}}

	messages := a.Assemble("我的BMI正常吗", intent.HealthAnalysis, sampleWorkflow(), passages, history)

	if messages[0].Role != llm.RoleSystem {
		t.Fatalf("first message role = %s, want system", messages[0].Role)
	}
	if messages[len(messages)-1].Role != llm.RoleUser || messages[len(messages)-1].Content != "我的BMI正常吗" {
		t.Errorf("last message must be the user message, got %+v", messages[len(messages)-1])
	}
	if len(messages) != 1+len(history)+1 {
		t.Errorf("got %d messages, want %d", len(messages), 1+len(history)+1)
	}

	system := messages[0].Content
	for _, want := range []string{
		"BMI 21.2（正常）",
		"占位",                       // placeholder provenance surfaced
		"backend unreachable",      // failed tool surfaced with its error
		"成人正常 BMI 范围为 18.5 到 23.9", // retrieved passage
		"health_analysis",
	} {
		if !strings.Contains(system, want) {
			t.Errorf("system block missing %q", want)
		}
	}
}

func TestAssembleHistoryWindow(t *testing.T) {
	a := NewAssembler(2)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "第一轮"},
		{Role: llm.RoleAssistant, Content: "第一轮回复"},
		{Role: llm.RoleUser, Content: "第二轮"},
		{Role: llm.RoleAssistant, Content: "第二轮回复"},
	}

	messages := a.Assemble("继续", intent.GeneralChat, nil, nil, history)

	// system + 2 kept history turns + user
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(messages))
	}
	if messages[1].Content != "第二轮" || messages[2].Content != "第二轮回复" {
		t.Errorf("history window must keep the most recent turns, got %v", messages[1:3])
	}
}

func TestAssembleDeterministic(t *testing.T) {
	a := NewAssembler(6)
	wf := sampleWorkflow()
	passages := []*schema.Passage{{Text: "低盐饮食有助于控制血压。"}}

	first := a.Assemble("高血压怎么办", intent.KnowledgeQuery, wf, passages, nil)
	second := a.Assemble("高血压怎么办", intent.KnowledgeQuery, wf, passages, nil)
	if !reflect.DeepEqual(first, second) {
		t.Error("assembly must be deterministic for identical inputs")
	}
}

func TestAssembleEmptyContext(t *testing.T) {
	a := NewAssembler(6)
	messages := a.Assemble("你好", intent.GeneralChat, nil, nil, nil)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
}
