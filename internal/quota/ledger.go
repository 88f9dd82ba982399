package quota

import (
	"sort"
	"sync"

	"clipforge/internal/domain"
)

// Ledger tracks per-metric usage against plan limits. Server responses are
// authoritative; an optimistic delta may be applied ahead of a slow call so
// the dashboard reflects consumption immediately, and is reverted when the
// call fails. At most one optimistic delta is outstanding per metric.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]domain.UsageEntry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]domain.UsageEntry)}
}

// Reconcile overwrites a metric with server-reported truth and clears any
// provisional marker. It is idempotent and unconditional.
func (l *Ledger) Reconcile(metric string, entry domain.UsageEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.MetricName = metric
	entry.Provisional = false
	l.entries[metric] = entry
}

// ApplyOptimistic adjusts a metric ahead of server confirmation. It reports
// whether the delta was applied: unseeded metrics have nothing to adjust
// against, and a metric with an outstanding provisional delta refuses a
// second one until reconciled or reverted.
func (l *Ledger) ApplyOptimistic(metric string, delta int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[metric]
	if !ok || entry.Provisional {
		return false
	}
	entry.CurrentUsage = clamp(entry.CurrentUsage + delta)
	entry.Provisional = true
	l.entries[metric] = entry
	return true
}

// Revert undoes a previously applied optimistic delta after a failed call,
// restoring the pre-optimistic display.
func (l *Ledger) Revert(metric string, delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[metric]
	if !ok || !entry.Provisional {
		return
	}
	entry.CurrentUsage = clamp(entry.CurrentUsage - delta)
	entry.Provisional = false
	l.entries[metric] = entry
}

// Get returns the entry for a metric.
func (l *Ledger) Get(metric string) (domain.UsageEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[metric]
	return entry, ok
}

// List returns all entries ordered by metric name.
func (l *Ledger) List() []domain.UsageEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.UsageEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricName < out[j].MetricName })
	return out
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
