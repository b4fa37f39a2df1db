package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"HealthAgent/internal/agent/tools"
	"HealthAgent/pkg/logger"
)

// Mode selects how a workflow's tool calls are scheduled.
type Mode string

const (
	ModeParallel    Mode = "parallel"
	ModeSequential  Mode = "sequential"
	ModeConditional Mode = "conditional"
	ModeAdaptive    Mode = "adaptive"
)

// Status is the lifecycle state of a single tool call.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusRunning  Status = "RUNNING"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusTimedOut Status = "TIMED_OUT"
	StatusSkipped  Status = "SKIPPED"
)

// ToolCallConfig describes one tool invocation inside a workflow.
// ID distinguishes multiple calls to the same tool; it defaults to Name
// and is what DependsOn entries refer to. Params set here always win over
// values propagated from dependency outputs.
type ToolCallConfig struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params"`
	DependsOn []string               `json:"depends_on,omitempty"`
	Timeout   time.Duration          `json:"timeout,omitempty"`
}

func (c *ToolCallConfig) key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

// ToolResult records the outcome of one tool call. Each call gets exactly
// one attempt; there is no in-engine retry.
type ToolResult struct {
	Name     string        `json:"name"`
	Action   string        `json:"action"`
	Status   Status        `json:"status"`
	Output   *tools.Output `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// WorkflowResult aggregates the outcome of one Execute call. Results holds
// one entry per config, in config order. Partial is true when the workflow
// ceiling expired before every call finished.
type WorkflowResult struct {
	Mode     Mode          `json:"mode"`
	Results  []*ToolResult `json:"results"`
	Partial  bool          `json:"partial"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether every call in the workflow completed successfully.
func (w *WorkflowResult) Succeeded() bool {
	for _, r := range w.Results {
		if r.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// Engine schedules tool calls against the registry and feeds the stats
// service after every completed call.
type Engine struct {
	registry        *tools.Registry
	stats           *Stats
	perToolTimeout  map[string]time.Duration
	defaultTimeout  time.Duration
	workflowCeiling time.Duration
	log             *logger.Logger
}

// Timeouts maps tool names to their per-call deadline. Tools without an
// entry fall back to Default.
type Timeouts struct {
	Default  time.Duration
	PerTool  map[string]time.Duration
	Workflow time.Duration
}

func New(registry *tools.Registry, stats *Stats, timeouts Timeouts, log *logger.Logger) *Engine {
	if timeouts.Default <= 0 {
		timeouts.Default = 10 * time.Second
	}
	if timeouts.Workflow <= 0 {
		timeouts.Workflow = 120 * time.Second
	}
	return &Engine{
		registry:        registry,
		stats:           stats,
		perToolTimeout:  timeouts.PerTool,
		defaultTimeout:  timeouts.Default,
		workflowCeiling: timeouts.Workflow,
		log:             log,
	}
}

// Validate checks a workflow before execution: every tool must be
// registered, call IDs unique, dependencies resolvable and acyclic.
// Intent tables run this at startup so a bad table fails fast.
func (e *Engine) Validate(configs []*ToolCallConfig) error {
	return ValidateConfigs(configs, e.registry)
}

// ValidateConfigs is the standalone form of Validate; registry may be nil to
// skip the tool existence check.
func ValidateConfigs(configs []*ToolCallConfig, registry *tools.Registry) error {
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		if cfg.Name == "" {
			return fmt.Errorf("tool call with empty name")
		}
		if seen[cfg.key()] {
			return fmt.Errorf("duplicate tool call %q in workflow", cfg.key())
		}
		seen[cfg.key()] = true
		if registry != nil && !registry.Has(cfg.Name) {
			return fmt.Errorf("unknown tool %q in workflow", cfg.Name)
		}
	}
	for _, cfg := range configs {
		for _, dep := range cfg.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("tool call %q depends on unknown call %q", cfg.key(), dep)
			}
		}
	}
	if _, err := topoOrder(configs); err != nil {
		return err
	}
	return nil
}

// Execute runs the workflow under the engine's outer ceiling. When the
// ceiling expires, unfinished calls are marked TIMED_OUT or SKIPPED and the
// partial result is returned rather than an error.
func (e *Engine) Execute(ctx context.Context, configs []*ToolCallConfig, mode Mode) (*WorkflowResult, error) {
	if err := e.Validate(configs); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.workflowCeiling)
	defer cancel()

	start := time.Now()
	var results []*ToolResult
	switch mode {
	case ModeParallel:
		results = e.runParallel(ctx, configs)
	case ModeSequential:
		results = e.runSequential(ctx, configs)
	case ModeConditional:
		results = e.runConditional(ctx, configs)
	case ModeAdaptive:
		results = e.runAdaptive(ctx, configs)
	default:
		return nil, fmt.Errorf("unknown execution mode %q", mode)
	}

	workflow := &WorkflowResult{
		Mode:     mode,
		Results:  results,
		Duration: time.Since(start),
	}
	for _, r := range results {
		if r.Status == StatusTimedOut || r.Status == StatusSkipped {
			if ctx.Err() != nil {
				workflow.Partial = true
				break
			}
		}
	}
	return workflow, nil
}

// runOne executes a single call with its per-tool deadline and records the
// outcome in the stats service. A late result from a timed-out tool is
// discarded, not surfaced.
func (e *Engine) runOne(ctx context.Context, cfg *ToolCallConfig) *ToolResult {
	result := &ToolResult{Name: cfg.Name, Action: cfg.Action, Status: StatusPending}

	tool, err := e.registry.Get(cfg.Name)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = e.timeoutFor(cfg.Name)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result.Status = StatusRunning
	start := time.Now()

	type outcome struct {
		output *tools.Output
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		output, err := tool.Execute(callCtx, cfg.Action, cfg.Params)
		done <- outcome{output, err}
	}()

	select {
	case o := <-done:
		result.Duration = time.Since(start)
		if errors.Is(o.err, context.DeadlineExceeded) {
			result.Status = StatusTimedOut
			result.Error = fmt.Sprintf("tool %q timed out after %s", cfg.Name, timeout)
		} else if o.err != nil {
			result.Status = StatusFailed
			result.Error = o.err.Error()
		} else {
			result.Status = StatusSuccess
			result.Output = o.output
		}
	case <-callCtx.Done():
		result.Duration = time.Since(start)
		result.Status = StatusTimedOut
		result.Error = fmt.Sprintf("tool %q timed out after %s", cfg.Name, timeout)
	}

	e.stats.Record(cfg.Name, result.Status == StatusSuccess, result.Duration)
	e.log.WithPayload(map[string]interface{}{
		"tool":     cfg.Name,
		"action":   cfg.Action,
		"status":   string(result.Status),
		"duration": result.Duration.String(),
	}).Debug("tool call finished")
	return result
}

func (e *Engine) timeoutFor(name string) time.Duration {
	if d, ok := e.perToolTimeout[name]; ok && d > 0 {
		return d
	}
	return e.defaultTimeout
}

// runParallel launches every call concurrently. A failing call never
// cancels its siblings; all are awaited.
func (e *Engine) runParallel(ctx context.Context, configs []*ToolCallConfig) []*ToolResult {
	results := make([]*ToolResult, len(configs))
	var wg sync.WaitGroup
	for i, cfg := range configs {
		wg.Add(1)
		go func(i int, cfg *ToolCallConfig) {
			defer wg.Done()
			results[i] = e.runOne(ctx, cfg)
		}(i, cfg)
	}
	wg.Wait()
	return results
}

// runSequential executes in topological order over depends_on. When a
// prerequisite did not succeed, the dependent is SKIPPED with the reason;
// when it succeeded, its output data feeds the dependent's params.
func (e *Engine) runSequential(ctx context.Context, configs []*ToolCallConfig) []*ToolResult {
	order, _ := topoOrder(configs) // validated before execution

	byKey := make(map[string]*ToolResult, len(configs))
	for _, cfg := range order {
		if ctx.Err() != nil {
			byKey[cfg.key()] = &ToolResult{
				Name:   cfg.Name,
				Action: cfg.Action,
				Status: StatusSkipped,
				Error:  "workflow deadline exceeded",
			}
			continue
		}
		if blocked, reason := failedDependency(cfg, byKey); blocked {
			byKey[cfg.key()] = &ToolResult{
				Name:   cfg.Name,
				Action: cfg.Action,
				Status: StatusSkipped,
				Error:  reason,
			}
			continue
		}
		mergeDependencyOutputs(cfg, byKey)
		byKey[cfg.key()] = e.runOne(ctx, cfg)
	}

	// Report in config order regardless of execution order.
	results := make([]*ToolResult, len(configs))
	for i, cfg := range configs {
		results[i] = byKey[cfg.key()]
	}
	return results
}

// runConditional executes the first call; the rest run only if it succeeds.
func (e *Engine) runConditional(ctx context.Context, configs []*ToolCallConfig) []*ToolResult {
	if len(configs) == 0 {
		return nil
	}
	results := make([]*ToolResult, len(configs))
	results[0] = e.runOne(ctx, configs[0])
	if results[0].Status != StatusSuccess {
		for i := 1; i < len(configs); i++ {
			results[i] = &ToolResult{
				Name:   configs[i].Name,
				Action: configs[i].Action,
				Status: StatusSkipped,
				Error:  fmt.Sprintf("condition %q did not succeed", configs[0].Name),
			}
		}
		return results
	}
	for i := 1; i < len(configs); i++ {
		results[i] = e.runOne(ctx, configs[i])
	}
	return results
}

// runAdaptive runs dependency-free calls in parallel first, then the
// dependent ones sequentially. The dependency order is computed over the
// whole workflow, so a call whose prerequisites all ran in the free phase
// is scheduled in the second phase, not mistaken for a cycle member.
func (e *Engine) runAdaptive(ctx context.Context, configs []*ToolCallConfig) []*ToolResult {
	var free []*ToolCallConfig
	for _, cfg := range configs {
		if len(cfg.DependsOn) == 0 {
			free = append(free, cfg)
		}
	}

	byKey := make(map[string]*ToolResult, len(configs))
	freeResults := e.runParallel(ctx, free)
	for i, cfg := range free {
		byKey[cfg.key()] = freeResults[i]
	}

	order, _ := topoOrder(configs) // validated before execution
	for _, cfg := range order {
		if len(cfg.DependsOn) == 0 {
			continue // already ran in the free phase
		}
		if blocked, reason := failedDependency(cfg, byKey); blocked {
			byKey[cfg.key()] = &ToolResult{
				Name:   cfg.Name,
				Action: cfg.Action,
				Status: StatusSkipped,
				Error:  reason,
			}
			continue
		}
		mergeDependencyOutputs(cfg, byKey)
		byKey[cfg.key()] = e.runOne(ctx, cfg)
	}

	results := make([]*ToolResult, len(configs))
	for i, cfg := range configs {
		results[i] = byKey[cfg.key()]
	}
	return results
}

func failedDependency(cfg *ToolCallConfig, byKey map[string]*ToolResult) (bool, string) {
	for _, dep := range cfg.DependsOn {
		prev, ok := byKey[dep]
		if !ok || prev.Status != StatusSuccess {
			status := "missing"
			if ok {
				status = string(prev.Status)
			}
			return true, fmt.Sprintf("dependency %q did not succeed (%s)", dep, status)
		}
	}
	return false, ""
}

// mergeDependencyOutputs copies each successful dependency's output data
// into the dependent call's params, so a profile lookup can feed a BMI
// calculation and a record query can feed a chart. Params already present
// on the call are never overwritten.
func mergeDependencyOutputs(cfg *ToolCallConfig, byKey map[string]*ToolResult) {
	for _, dep := range cfg.DependsOn {
		prev := byKey[dep]
		if prev == nil || prev.Status != StatusSuccess || prev.Output == nil {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]interface{}, len(prev.Output.Data))
		}
		for k, v := range prev.Output.Data {
			if _, exists := cfg.Params[k]; !exists {
				cfg.Params[k] = v
			}
		}
	}
}

// topoOrder returns the calls in dependency order, or an error when the
// depends_on graph has a cycle. Ties keep config order (Kahn's algorithm
// with a FIFO over the original ordering).
func topoOrder(configs []*ToolCallConfig) ([]*ToolCallConfig, error) {
	byKey := make(map[string]*ToolCallConfig, len(configs))
	indegree := make(map[string]int, len(configs))
	dependents := make(map[string][]string, len(configs))
	for _, cfg := range configs {
		byKey[cfg.key()] = cfg
		indegree[cfg.key()] = len(cfg.DependsOn)
		for _, dep := range cfg.DependsOn {
			dependents[dep] = append(dependents[dep], cfg.key())
		}
	}

	var queue []string
	for _, cfg := range configs {
		if indegree[cfg.key()] == 0 {
			queue = append(queue, cfg.key())
		}
	}

	ordered := make([]*ToolCallConfig, 0, len(configs))
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		ordered = append(ordered, byKey[key])
		for _, next := range dependents[key] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(ordered) != len(configs) {
		var cyclic []string
		for name, deg := range indegree {
			if deg > 0 {
				cyclic = append(cyclic, name)
			}
		}
		return nil, fmt.Errorf("dependency cycle among tool calls: %v", cyclic)
	}
	return ordered, nil
}
