package tools

import (
	"context"
	"fmt"

	"HealthAgent/pkg/logger"
	"HealthAgent/pkg/mcphost"
)

// Weather reports current conditions for outdoor exercise advice. Like
// WebSearch it prefers a connected MCP weather server and falls back to a
// placeholder when none is reachable.
type Weather struct {
	host        *mcphost.Host
	mcpToolName string
	log         *logger.Logger
}

func NewWeather(host *mcphost.Host, log *logger.Logger) *Weather {
	return &Weather{host: host, mcpToolName: "get_weather", log: log}
}

func (w *Weather) Name() string { return "weather" }

func (w *Weather) Execute(ctx context.Context, action string, params map[string]interface{}) (*Output, error) {
	if action != "current" {
		return nil, ErrUnknownAction(w.Name(), action)
	}
	city := optionalStringParam(params, "city", "北京")

	if w.host != nil && w.host.HasTool(w.mcpToolName) {
		text, err := w.host.InvokeTool(ctx, w.mcpToolName, map[string]interface{}{"city": city})
		if err == nil {
			return &Output{
				Data:       map[string]interface{}{"city": city, "report": text},
				Summary:    fmt.Sprintf("%s 当前天气已获取", city),
				Provenance: ProvenanceReal,
			}, nil
		}
		w.log.WithError(logger.ErrorInfo{Message: err.Error()}).Warn("MCP 天气调用失败，降级为占位结果")
	}

	return &Output{
		Data: map[string]interface{}{
			"city":   city,
			"report": fmt.Sprintf("%s 的天气服务当前不可用，请以本地预报为准。", city),
		},
		Summary:    fmt.Sprintf("%s 天气暂无实时数据", city),
		Provenance: ProvenancePlaceholder,
	}, nil
}
