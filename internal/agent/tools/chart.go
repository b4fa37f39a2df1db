package tools

import (
	"context"
	"fmt"
)

// ChartGenerator builds renderable chart specifications from tabular data.
// The output is a deterministic spec the frontend renders; no image is
// produced server-side.
type ChartGenerator struct{}

func NewChartGenerator() *ChartGenerator { return &ChartGenerator{} }

func (g *ChartGenerator) Name() string { return "chart_generator" }

var supportedChartTypes = map[string]bool{
	"line": true,
	"bar":  true,
	"pie":  true,
}

func (g *ChartGenerator) Execute(ctx context.Context, action string, params map[string]interface{}) (*Output, error) {
	if action != "generate" {
		return nil, ErrUnknownAction(g.Name(), action)
	}

	chartType := optionalStringParam(params, "chart_type", "line")
	if !supportedChartTypes[chartType] {
		return nil, fmt.Errorf("unsupported chart_type %q", chartType)
	}
	title := optionalStringParam(params, "title", "健康数据趋势")

	labels, err := stringSlice(params, "labels")
	if err != nil {
		return nil, err
	}
	values, err := floatSlice(params, "values")
	if err != nil {
		return nil, err
	}
	if len(labels) != len(values) {
		return nil, fmt.Errorf("labels and values length mismatch: %d vs %d", len(labels), len(values))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no data points to chart")
	}

	spec := map[string]interface{}{
		"type":   chartType,
		"title":  title,
		"labels": labels,
		"series": []map[string]interface{}{
			{"name": title, "data": values},
		},
	}

	return &Output{
		Data:       map[string]interface{}{"chart": spec},
		Summary:    fmt.Sprintf("已生成 %s 图表「%s」，共 %d 个数据点", chartType, title, len(values)),
		Provenance: ProvenanceReal,
	}, nil
}

func stringSlice(params map[string]interface{}, key string) ([]string, error) {
	v, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", key)
	}
	raw, ok := v.([]interface{})
	if !ok {
		if typed, ok := v.([]string); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("parameter %q must be an array", key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q must contain only strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func floatSlice(params map[string]interface{}, key string) ([]float64, error) {
	v, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", key)
	}
	raw, ok := v.([]interface{})
	if !ok {
		if typed, ok := v.([]float64); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("parameter %q must be an array", key)
	}
	out := make([]float64, 0, len(raw))
	for _, item := range raw {
		n, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("parameter %q must contain only numbers", key)
		}
		out = append(out, n)
	}
	return out, nil
}
