package probe

import (
	"sort"
	"sync"
)

// Results collects reports from concurrent workers.
type Results struct {
	mu      sync.Mutex
	reports []Report
}

// NewResults creates an empty table.
func NewResults() *Results {
	return &Results{}
}

// Add inserts a report.
func (t *Results) Add(r Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reports = append(t.reports, r)
}

// Reports returns a copy of all reports sorted by task name.
func (t *Results) Reports() []Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Report, len(t.reports))
	copy(out, t.reports)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of reports.
func (t *Results) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reports)
}
