package tools

import (
	"context"
	"math"
	"testing"
)

func TestCalculatorBMI(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		name     string
		weight   float64
		height   float64
		wantBMI  float64
		category string
	}{
		{"normal", 65, 175, 21.2, "正常"},
		{"overweight", 80, 170, 27.7, "超重"},
		{"obese", 95, 170, 32.9, "肥胖"},
		{"underweight", 45, 165, 16.5, "偏瘦"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Execute(context.Background(), "bmi", map[string]interface{}{
				"weight_kg": tt.weight,
				"height_cm": tt.height,
			})
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got := out.Data["bmi"].(float64); math.Abs(got-tt.wantBMI) > 0.05 {
				t.Errorf("bmi = %v, want %v", got, tt.wantBMI)
			}
			if got := out.Data["category"].(string); got != tt.category {
				t.Errorf("category = %q, want %q", got, tt.category)
			}
			if out.Provenance != ProvenanceReal {
				t.Errorf("provenance = %q, want real", out.Provenance)
			}
		})
	}
}

func TestCalculatorBMIInvalidInput(t *testing.T) {
	c := NewCalculator()

	cases := []map[string]interface{}{
		{"weight_kg": 0.0, "height_cm": 175.0},
		{"weight_kg": 65.0, "height_cm": -1.0},
		{"weight_kg": 65.0},
		{"weight_kg": "heavy", "height_cm": 175.0},
	}
	for _, params := range cases {
		if _, err := c.Execute(context.Background(), "bmi", params); err == nil {
			t.Errorf("params %v: expected error", params)
		}
	}
}

func TestCalculatorBMR(t *testing.T) {
	c := NewCalculator()

	// Mifflin-St Jeor: 10*70 + 6.25*175 - 5*30 + 5 = 1648.75
	out, err := c.Execute(context.Background(), "bmr", map[string]interface{}{
		"weight_kg": 70.0,
		"height_cm": 175.0,
		"age":       30.0,
		"gender":    "male",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.Data["bmr_kcal"].(float64); math.Abs(got-1648.8) > 0.05 {
		t.Errorf("bmr = %v, want 1648.8", got)
	}
}

func TestCalculatorTDEE(t *testing.T) {
	c := NewCalculator()

	out, err := c.Execute(context.Background(), "tdee", map[string]interface{}{
		"weight_kg":      60.0,
		"height_cm":      165.0,
		"age":            28.0,
		"gender":         "female",
		"activity_level": "moderate",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	bmr := out.Data["bmr_kcal"].(float64)
	tdee := out.Data["tdee_kcal"].(float64)
	want := math.Round(bmr*1.55*10) / 10
	if math.Abs(tdee-want) > 0.05 {
		t.Errorf("tdee = %v, want %v", tdee, want)
	}
}

func TestCalculatorUnknownAction(t *testing.T) {
	c := NewCalculator()
	if _, err := c.Execute(context.Background(), "body_fat", nil); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewCalculator()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(NewCalculator()); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if !r.Has("calculator") {
		t.Error("Has(calculator) = false")
	}
	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected error for unknown tool")
	}
}
