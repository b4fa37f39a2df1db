package tools

import (
	"context"
	"fmt"
	"math"
)

// Calculator performs deterministic health computations locally.
type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Name() string { return "calculator" }

var activityFactors = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

func (c *Calculator) Execute(ctx context.Context, action string, params map[string]interface{}) (*Output, error) {
	switch action {
	case "bmi":
		return c.bmi(params)
	case "bmr":
		return c.bmr(params)
	case "tdee":
		return c.tdee(params)
	case "ideal_weight":
		return c.idealWeight(params)
	default:
		return nil, ErrUnknownAction(c.Name(), action)
	}
}

func (c *Calculator) bmi(params map[string]interface{}) (*Output, error) {
	weight, err := floatParam(params, "weight_kg")
	if err != nil {
		return nil, err
	}
	height, err := floatParam(params, "height_cm")
	if err != nil {
		return nil, err
	}
	if weight <= 0 || height <= 0 {
		return nil, fmt.Errorf("weight and height must be positive")
	}

	heightM := height / 100
	bmi := round1(weight / (heightM * heightM))

	// 按中国成人标准分类。
	var category string
	switch {
	case bmi < 18.5:
		category = "偏瘦"
	case bmi < 24:
		category = "正常"
	case bmi < 28:
		category = "超重"
	default:
		category = "肥胖"
	}

	return &Output{
		Data:       map[string]interface{}{"bmi": bmi, "category": category},
		Summary:    fmt.Sprintf("BMI %.1f（%s）", bmi, category),
		Provenance: ProvenanceReal,
	}, nil
}

// bmr uses the Mifflin-St Jeor equation.
func (c *Calculator) bmr(params map[string]interface{}) (*Output, error) {
	weight, err := floatParam(params, "weight_kg")
	if err != nil {
		return nil, err
	}
	height, err := floatParam(params, "height_cm")
	if err != nil {
		return nil, err
	}
	age, err := floatParam(params, "age")
	if err != nil {
		return nil, err
	}
	gender, err := stringParam(params, "gender")
	if err != nil {
		return nil, err
	}

	bmr := 10*weight + 6.25*height - 5*age
	switch gender {
	case "male", "男":
		bmr += 5
	case "female", "女":
		bmr -= 161
	default:
		return nil, fmt.Errorf("gender must be male or female, got %q", gender)
	}
	bmr = round1(bmr)

	return &Output{
		Data:       map[string]interface{}{"bmr_kcal": bmr},
		Summary:    fmt.Sprintf("基础代谢率约 %.0f 千卡/天", bmr),
		Provenance: ProvenanceReal,
	}, nil
}

func (c *Calculator) tdee(params map[string]interface{}) (*Output, error) {
	bmrOut, err := c.bmr(params)
	if err != nil {
		return nil, err
	}
	level := optionalStringParam(params, "activity_level", "sedentary")
	factor, ok := activityFactors[level]
	if !ok {
		return nil, fmt.Errorf("unknown activity_level %q", level)
	}

	bmr := bmrOut.Data["bmr_kcal"].(float64)
	tdee := round1(bmr * factor)

	return &Output{
		Data: map[string]interface{}{
			"bmr_kcal":       bmr,
			"tdee_kcal":      tdee,
			"activity_level": level,
		},
		Summary:    fmt.Sprintf("每日总能量消耗约 %.0f 千卡（活动水平 %s）", tdee, level),
		Provenance: ProvenanceReal,
	}, nil
}

// idealWeight returns the weight range corresponding to a normal BMI
// (18.5 - 23.9) at the given height.
func (c *Calculator) idealWeight(params map[string]interface{}) (*Output, error) {
	height, err := floatParam(params, "height_cm")
	if err != nil {
		return nil, err
	}
	if height <= 0 {
		return nil, fmt.Errorf("height must be positive")
	}

	heightM := height / 100
	low := round1(18.5 * heightM * heightM)
	high := round1(23.9 * heightM * heightM)

	return &Output{
		Data:       map[string]interface{}{"low_kg": low, "high_kg": high},
		Summary:    fmt.Sprintf("身高 %.0fcm 的理想体重范围为 %.1f - %.1f 公斤", height, low, high),
		Provenance: ProvenanceReal,
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
