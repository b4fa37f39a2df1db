package intent

import (
	"context"
	"math"
	"testing"

	"HealthAgent/internal/agent/tools"
)

type noopTool struct{ name string }

func (t *noopTool) Name() string { return t.name }

func (t *noopTool) Execute(ctx context.Context, action string, params map[string]interface{}) (*tools.Output, error) {
	return &tools.Output{Provenance: tools.ProvenanceReal}, nil
}

func fullRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry()
	for _, name := range []string{"calculator", "health_database", "chart_generator", "search", "weather"} {
		if err := registry.Register(&noopTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}
	return registry
}

func TestNewClassifierValidatesTable(t *testing.T) {
	if _, err := NewClassifier(fullRegistry(t)); err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	// A registry missing a tool the table references must fail at startup.
	partial := tools.NewRegistry()
	if err := partial.Register(&noopTool{name: "calculator"}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewClassifier(partial); err == nil {
		t.Fatal("expected validation error for missing tools")
	}
}

func TestClassifyKeywordConfidence(t *testing.T) {
	c, err := NewClassifier(fullRegistry(t))
	if err != nil {
		t.Fatal(err)
	}

	// "运动" and "计划" match 2 of exercise_planning's 3 keywords; "bmi"
	// matches 1 of health_analysis's 6. Exercise planning must win.
	candidates := c.Classify("帮我计算BMI并制定减肥的运动计划")
	if len(candidates) < 2 {
		t.Fatalf("got %d candidates, want at least 2", len(candidates))
	}
	if candidates[0].Intent != ExercisePlanning {
		t.Errorf("top intent = %s, want exercise_planning", candidates[0].Intent)
	}
	if got, want := candidates[0].Confidence, 2.0/3.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", got, want)
	}

	var health *Candidate
	for i := range candidates {
		if candidates[i].Intent == HealthAnalysis {
			health = &candidates[i]
		}
	}
	if health == nil {
		t.Fatal("health_analysis missing from candidates")
	}
	if got, want := health.Confidence, 1.0/6.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("health_analysis confidence = %v, want %v", got, want)
	}

	for _, cand := range candidates {
		if cand.Confidence < 0 || cand.Confidence > 1 {
			t.Errorf("%s: confidence %v out of [0,1]", cand.Intent, cand.Confidence)
		}
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c, err := NewClassifier(fullRegistry(t))
	if err != nil {
		t.Fatal(err)
	}

	upper := c.Classify("我的BMI正常吗")
	lower := c.Classify("我的bmi正常吗")
	if upper[0].Intent != lower[0].Intent || upper[0].Confidence != lower[0].Confidence {
		t.Errorf("case must not affect classification: %v vs %v", upper[0], lower[0])
	}
}

func TestClassifyFallbackToGeneralChat(t *testing.T) {
	c, err := NewClassifier(fullRegistry(t))
	if err != nil {
		t.Fatal(err)
	}

	candidates := c.Classify("今天心情不错")
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].Intent != GeneralChat || candidates[0].Confidence != 0 {
		t.Errorf("got %v, want general_chat with confidence 0", candidates[0])
	}
	if calls := c.CallsFor(GeneralChat); len(calls) != 0 {
		t.Errorf("general_chat must have no tool calls, got %d", len(calls))
	}
}

func TestCallsForReturnsCopies(t *testing.T) {
	c, err := NewClassifier(fullRegistry(t))
	if err != nil {
		t.Fatal(err)
	}

	first := c.CallsFor(HealthAnalysis)
	first[0].Params["user_id"] = "u1"

	second := c.CallsFor(HealthAnalysis)
	if _, leaked := second[0].Params["user_id"]; leaked {
		t.Error("params injected into one copy leaked into the shared table")
	}
}
