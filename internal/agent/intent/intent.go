package intent

import (
	"fmt"
	"sort"
	"strings"

	"HealthAgent/internal/agent/engine"
	"HealthAgent/internal/agent/tools"
)

// Intent identifies what the user is asking the assistant to do.
type Intent string

const (
	HealthAnalysis          Intent = "health_analysis"
	NutritionPlanning       Intent = "nutrition_planning"
	ExercisePlanning        Intent = "exercise_planning"
	ComprehensiveAssessment Intent = "comprehensive_assessment"
	KnowledgeQuery          Intent = "knowledge_query"
	DataVisualization       Intent = "data_visualization"
	GeneralChat             Intent = "general_chat"
)

// Definition binds an intent to its trigger keywords and the tool workflow
// that serves it. Keywords are matched case-insensitively as substrings.
// Calls reference each other through DependsOn; the engine feeds each
// dependency's output data into its dependents' params at execution time.
type Definition struct {
	Intent         Intent
	Keywords       []string
	Calls          []*engine.ToolCallConfig
	Mode           engine.Mode
	NeedsRetrieval bool
}

// table is ordered; ties in confidence resolve to the earlier entry.
var table = []Definition{
	{
		Intent:   HealthAnalysis,
		Keywords: []string{"健康分析", "体检", "血压", "血糖", "bmi", "身体状况"},
		Calls: []*engine.ToolCallConfig{
			{ID: "records", Name: "health_database", Action: "recent_records", Params: map[string]interface{}{"days": 7.0}},
			{ID: "profile", Name: "health_database", Action: "profile"},
			{Name: "calculator", Action: "bmi", DependsOn: []string{"profile"}},
		},
		Mode:           engine.ModeAdaptive,
		NeedsRetrieval: true,
	},
	{
		Intent:   NutritionPlanning,
		Keywords: []string{"饮食", "营养", "食谱", "热量", "卡路里"},
		Calls: []*engine.ToolCallConfig{
			{Name: "health_database", Action: "profile"},
			{Name: "calculator", Action: "tdee", DependsOn: []string{"health_database"}},
		},
		Mode:           engine.ModeSequential,
		NeedsRetrieval: true,
	},
	{
		Intent:   ExercisePlanning,
		Keywords: []string{"运动", "锻炼", "计划"},
		Calls: []*engine.ToolCallConfig{
			{Name: "weather", Action: "current"},
			{Name: "health_database", Action: "profile"},
		},
		Mode:           engine.ModeParallel,
		NeedsRetrieval: true,
	},
	{
		Intent:   ComprehensiveAssessment,
		Keywords: []string{"综合评估", "全面评估", "整体健康", "健康报告"},
		Calls: []*engine.ToolCallConfig{
			{ID: "profile", Name: "health_database", Action: "profile"},
			{ID: "records", Name: "health_database", Action: "recent_records", Params: map[string]interface{}{"days": 30.0}},
			{Name: "calculator", Action: "bmi", DependsOn: []string{"profile"}},
			{Name: "chart_generator", Action: "generate", DependsOn: []string{"records"}},
		},
		Mode:           engine.ModeSequential,
		NeedsRetrieval: true,
	},
	{
		Intent:   KnowledgeQuery,
		Keywords: []string{"什么是", "是什么", "为什么", "怎么办", "如何预防"},
		Calls: []*engine.ToolCallConfig{
			{Name: "search", Action: "query"},
		},
		Mode:           engine.ModeConditional,
		NeedsRetrieval: true,
	},
	{
		Intent:   DataVisualization,
		Keywords: []string{"图表", "趋势", "可视化", "画图"},
		Calls: []*engine.ToolCallConfig{
			{Name: "health_database", Action: "recent_records", Params: map[string]interface{}{"days": 30.0}},
			{Name: "chart_generator", Action: "generate", DependsOn: []string{"health_database"}},
		},
		Mode:           engine.ModeSequential,
		NeedsRetrieval: false,
	},
	{
		Intent:         GeneralChat,
		Keywords:       nil,
		Calls:          nil,
		Mode:           engine.ModeParallel,
		NeedsRetrieval: false,
	},
}

// Candidate is one scored classification result.
type Candidate struct {
	Intent     Intent
	Confidence float64
	Matched    []string
}

// Classifier scores messages against the static intent table.
type Classifier struct {
	defs []Definition
}

// NewClassifier validates the intent table against the registry and returns
// a ready classifier. A broken table is a startup error, not a runtime one.
func NewClassifier(registry *tools.Registry) (*Classifier, error) {
	for _, def := range table {
		if def.Intent != GeneralChat && len(def.Keywords) == 0 {
			return nil, fmt.Errorf("intent %s has no keywords", def.Intent)
		}
		if err := engine.ValidateConfigs(def.Calls, registry); err != nil {
			return nil, fmt.Errorf("intent %s: %w", def.Intent, err)
		}
	}
	return &Classifier{defs: table}, nil
}

// Definition returns the table entry for an intent.
func (c *Classifier) Definition(it Intent) (Definition, bool) {
	for _, def := range c.defs {
		if def.Intent == it {
			return def, true
		}
	}
	return Definition{}, false
}

// Classify scores the message against every intent and returns candidates
// in descending confidence. Intents with zero keyword matches are excluded;
// when nothing matches, general_chat with confidence 0 is returned alone.
func (c *Classifier) Classify(message string) []Candidate {
	lowered := strings.ToLower(message)

	var candidates []Candidate
	for _, def := range c.defs {
		if len(def.Keywords) == 0 {
			continue
		}
		var matched []string
		for _, kw := range def.Keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			Intent:     def.Intent,
			Confidence: float64(len(matched)) / float64(len(def.Keywords)),
			Matched:    matched,
		})
	}

	if len(candidates) == 0 {
		return []Candidate{{Intent: GeneralChat, Confidence: 0}}
	}

	// Stable keeps table order for equal confidence.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

// CallsFor returns a deep copy of the intent's tool calls so callers can
// inject request-scoped params without mutating the shared table.
func (c *Classifier) CallsFor(it Intent) []*engine.ToolCallConfig {
	def, ok := c.Definition(it)
	if !ok {
		return nil
	}
	calls := make([]*engine.ToolCallConfig, 0, len(def.Calls))
	for _, call := range def.Calls {
		cp := *call
		cp.Params = make(map[string]interface{}, len(call.Params)+1)
		for k, v := range call.Params {
			cp.Params[k] = v
		}
		cp.DependsOn = append([]string(nil), call.DependsOn...)
		calls = append(calls, &cp)
	}
	return calls
}
