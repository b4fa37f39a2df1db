package prompt

import (
	"fmt"
	"strings"

	"HealthAgent/internal/agent/engine"
	"HealthAgent/internal/agent/intent"
	"HealthAgent/internal/agent/tools"
	"HealthAgent/internal/llm"
	"HealthAgent/internal/rag/schema"
)

const systemPrompt = `你是一位专业的健康顾问助手。请基于提供的工具结果和参考资料回答用户的健康问题。
回答要求：
1. 结论基于数据和资料，不要编造事实。
2. 标注为“占位”的工具结果表示实时服务不可用，引用时需说明。
3. 涉及诊断或用药的问题，提醒用户咨询医生。
4. 使用与用户提问相同的语言回答。`

// Assembler builds the message list sent to the model. Assembly is
// deterministic: the same inputs always produce the same messages.
type Assembler struct {
	historyWindow int
}

// NewAssembler creates an Assembler keeping the last historyWindow turns.
func NewAssembler(historyWindow int) *Assembler {
	if historyWindow <= 0 {
		historyWindow = 6
	}
	return &Assembler{historyWindow: historyWindow}
}

// Assemble produces: system block, tool invocation summary, retrieved
// passages, bounded history, then the user message. Failed tools and empty
// retrieval still yield a coherent prompt.
func (a *Assembler) Assemble(
	userMsg string,
	it intent.Intent,
	workflow *engine.WorkflowResult,
	passages []*schema.Passage,
	history []llm.Message,
) []llm.Message {
	var messages []llm.Message

	var system strings.Builder
	system.WriteString(systemPrompt)
	system.WriteString(fmt.Sprintf("\n\n本次请求识别的意图：%s", it))

	if workflow != nil && len(workflow.Results) > 0 {
		system.WriteString("\n\n## 工具执行结果\n")
		system.WriteString(summarizeWorkflow(workflow))
	}

	if len(passages) > 0 {
		system.WriteString("\n\n## 参考资料\n")
		for i, p := range passages {
			system.WriteString(fmt.Sprintf("[%d] %s\n", i+1, p.Text))
		}
	}

	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system.String()})

	if len(history) > a.historyWindow {
		history = history[len(history)-a.historyWindow:]
	}
	messages = append(messages, history...)

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMsg})
	return messages
}

func summarizeWorkflow(workflow *engine.WorkflowResult) string {
	var sb strings.Builder
	for _, r := range workflow.Results {
		sb.WriteString(fmt.Sprintf("- %s.%s：%s", r.Name, r.Action, statusLabel(r.Status)))
		switch {
		case r.Status == engine.StatusSuccess && r.Output != nil:
			if r.Output.Provenance == tools.ProvenancePlaceholder {
				sb.WriteString("（占位）")
			}
			sb.WriteString(" ")
			sb.WriteString(r.Output.Summary)
		case r.Error != "":
			sb.WriteString(" ")
			sb.WriteString(r.Error)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func statusLabel(s engine.Status) string {
	switch s {
	case engine.StatusSuccess:
		return "成功"
	case engine.StatusFailed:
		return "失败"
	case engine.StatusTimedOut:
		return "超时"
	case engine.StatusSkipped:
		return "跳过"
	default:
		return string(s)
	}
}
