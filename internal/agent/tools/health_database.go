package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"HealthAgent/internal/healthdata"

	"gorm.io/gorm"
)

// HealthDatabase exposes the user's stored health records to the agent.
type HealthDatabase struct {
	store *healthdata.Store
}

func NewHealthDatabase(store *healthdata.Store) *HealthDatabase {
	return &HealthDatabase{store: store}
}

func (h *HealthDatabase) Name() string { return "health_database" }

func (h *HealthDatabase) Execute(ctx context.Context, action string, params map[string]interface{}) (*Output, error) {
	userID, err := stringParam(params, "user_id")
	if err != nil {
		return nil, err
	}

	switch action {
	case "recent_records":
		return h.recentRecords(ctx, userID, params)
	case "latest_metric":
		return h.latestMetric(ctx, userID, params)
	case "profile":
		return h.profile(ctx, userID)
	default:
		return nil, ErrUnknownAction(h.Name(), action)
	}
}

func (h *HealthDatabase) recentRecords(ctx context.Context, userID string, params map[string]interface{}) (*Output, error) {
	days := 7.0
	if _, ok := params["days"]; ok {
		var err error
		if days, err = floatParam(params, "days"); err != nil {
			return nil, err
		}
	}
	recordType := healthdata.RecordType(optionalStringParam(params, "type", ""))

	since := time.Now().AddDate(0, 0, -int(days))
	records, err := h.store.RecentRecords(ctx, userID, recordType, since, 50)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]interface{}, 0, len(records))
	// Records with a numeric "value" in their payload double as chart data:
	// the recorded date becomes the label, the value the data point.
	var labels []string
	var values []float64
	for _, r := range records {
		items = append(items, map[string]interface{}{
			"type":        string(r.Type),
			"metric":      r.Metric,
			"payload":     string(r.Payload),
			"recorded_at": r.RecordedAt.Format(time.RFC3339),
		})
		if v, ok := payloadValue(r.Payload); ok {
			labels = append(labels, r.RecordedAt.Format("2006-01-02"))
			values = append(values, v)
		}
	}

	return &Output{
		Data: map[string]interface{}{
			"records": items,
			"count":   len(items),
			"labels":  labels,
			"values":  values,
		},
		Summary:    fmt.Sprintf("最近 %d 天共 %d 条健康记录", int(days), len(items)),
		Provenance: ProvenanceReal,
	}, nil
}

func payloadValue(payload []byte) (float64, bool) {
	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return 0, false
	}
	v, ok := fields["value"].(float64)
	return v, ok
}

func (h *HealthDatabase) latestMetric(ctx context.Context, userID string, params map[string]interface{}) (*Output, error) {
	metric, err := stringParam(params, "metric")
	if err != nil {
		return nil, err
	}

	record, err := h.store.LatestMetric(ctx, userID, metric)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Output{
			Data:       map[string]interface{}{"metric": metric, "found": false},
			Summary:    fmt.Sprintf("没有 %s 的测量记录", metric),
			Provenance: ProvenanceReal,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Output{
		Data: map[string]interface{}{
			"metric":      metric,
			"found":       true,
			"payload":     string(record.Payload),
			"recorded_at": record.RecordedAt.Format(time.RFC3339),
		},
		Summary:    fmt.Sprintf("%s 最近一次记录于 %s", metric, record.RecordedAt.Format("2006-01-02")),
		Provenance: ProvenanceReal,
	}, nil
}

func (h *HealthDatabase) profile(ctx context.Context, userID string) (*Output, error) {
	profile, err := h.store.Profile(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Output{
			Data:       map[string]interface{}{"found": false},
			Summary:    "用户尚未填写健康档案",
			Provenance: ProvenanceReal,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Output{
		Data: map[string]interface{}{
			"found":     true,
			"gender":    profile.Gender,
			"age":       profile.Age,
			"height_cm": profile.HeightCm,
			"weight_kg": profile.WeightKg,
			"goals":     string(profile.Goals),
		},
		Summary:    fmt.Sprintf("用户档案：%s，%d 岁，身高 %.0fcm，体重 %.1fkg", profile.Gender, profile.Age, profile.HeightCm, profile.WeightKg),
		Provenance: ProvenanceReal,
	}, nil
}
