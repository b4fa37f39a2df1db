package engine

import (
	"sort"
	"sync"
	"time"
)

// ToolStats is a snapshot of one tool's cumulative counters.
type ToolStats struct {
	Tool          string        `json:"tool"`
	Total         int64         `json:"total"`
	Successful    int64         `json:"successful"`
	Failed        int64         `json:"failed"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// Stats keeps per-tool execution counters for the process lifetime. Counters
// are cumulative and never reset.
type Stats struct {
	mu       sync.Mutex
	counters map[string]*toolCounter
}

type toolCounter struct {
	total    int64
	success  int64
	failed   int64
	duration time.Duration
}

func NewStats() *Stats {
	return &Stats{counters: make(map[string]*toolCounter)}
}

// Record updates the counters for one finished call. Timeouts count as
// failures.
func (s *Stats) Record(tool string, success bool, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[tool]
	if !ok {
		c = &toolCounter{}
		s.counters[tool] = c
	}
	c.total++
	if success {
		c.success++
	} else {
		c.failed++
	}
	c.duration += duration
}

// Snapshot returns a copy of every tool's counters, sorted by tool name.
func (s *Stats) Snapshot() []ToolStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ToolStats, 0, len(s.counters))
	for tool, c := range s.counters {
		stat := ToolStats{
			Tool:          tool,
			Total:         c.total,
			Successful:    c.success,
			Failed:        c.failed,
			TotalDuration: c.duration,
		}
		if c.total > 0 {
			stat.AvgDuration = c.duration / time.Duration(c.total)
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}
