package tools

import (
	"context"
	"fmt"

	"HealthAgent/pkg/logger"
	"HealthAgent/pkg/mcphost"
)

// WebSearch answers search queries through a connected MCP search server.
// When no server is connected or the call fails, it degrades to a
// placeholder result so the workflow can still complete; the provenance
// field tells downstream consumers which one they got.
type WebSearch struct {
	host        *mcphost.Host
	mcpToolName string
	log         *logger.Logger
}

func NewWebSearch(host *mcphost.Host, log *logger.Logger) *WebSearch {
	return &WebSearch{host: host, mcpToolName: "web_search", log: log}
}

func (s *WebSearch) Name() string { return "search" }

func (s *WebSearch) Execute(ctx context.Context, action string, params map[string]interface{}) (*Output, error) {
	if action != "query" {
		return nil, ErrUnknownAction(s.Name(), action)
	}
	query, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}

	if s.host != nil && s.host.HasTool(s.mcpToolName) {
		text, err := s.host.InvokeTool(ctx, s.mcpToolName, map[string]interface{}{"query": query})
		if err == nil {
			return &Output{
				Data:       map[string]interface{}{"query": query, "results": text},
				Summary:    fmt.Sprintf("搜索「%s」返回了实时结果", query),
				Provenance: ProvenanceReal,
			}, nil
		}
		s.log.WithError(logger.ErrorInfo{Message: err.Error()}).Warn("MCP 搜索调用失败，降级为占位结果")
	}

	return &Output{
		Data: map[string]interface{}{
			"query":   query,
			"results": fmt.Sprintf("关于「%s」的搜索服务当前不可用。", query),
		},
		Summary:    fmt.Sprintf("搜索「%s」暂无实时结果", query),
		Provenance: ProvenancePlaceholder,
	}, nil
}
