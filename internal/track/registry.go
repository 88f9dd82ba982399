package track

import (
	"sync"
	"time"

	"clipforge/internal/domain"
)

// Registry is the in-memory mirror of job status used for dashboard
// rendering. It is the single merge point for both notification channels:
// every update goes through ApplyUpdate, and the terminal-state guard there
// is the only mechanism preventing a stale channel from resurrecting a
// finished job.
type Registry struct {
	mu      sync.RWMutex
	records map[string]domain.JobStatusRecord
	now     func() time.Time
}

// NewRegistry builds an empty registry. Registries are constructed per
// tracker so tests can instantiate isolated instances.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]domain.JobStatusRecord), now: time.Now}
}

// Register creates the optimistic pending row for an accepted submission,
// before any server confirmation has arrived.
func (r *Registry) Register(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[jobID]; ok {
		return
	}
	r.records[jobID] = domain.JobStatusRecord{
		JobID:         jobID,
		Status:        domain.JobStatusPending,
		RawStatus:     string(domain.JobStatusPending),
		LastUpdatedAt: r.now(),
	}
}

// ApplyUpdate merges one status update. It is a no-op for ids the registry
// does not know and for records already in a terminal state, which makes
// duplicate or out-of-order terminal notifications safe.
func (r *Registry) ApplyUpdate(jobID string, status domain.JobStatus, detail *domain.ProgressDetail, source domain.UpdateSource) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[jobID]
	if !ok || record.Status.IsTerminal() {
		return false
	}
	record.Status = status.Normalize()
	record.RawStatus = string(status)
	record.ProgressDetail = detail
	record.LastUpdateSource = source
	if now := r.now(); now.After(record.LastUpdatedAt) {
		record.LastUpdatedAt = now
	}
	r.records[jobID] = record
	return true
}

// Get returns the status for a job id, defaulting to pending for ids with no
// record yet. This covers the window between optimistic registration and the
// first observed update.
func (r *Registry) Get(jobID string) domain.JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if record, ok := r.records[jobID]; ok {
		return record.Status
	}
	return domain.JobStatusPending
}

// Record returns the full mirror row for a job id.
func (r *Registry) Record(jobID string) (domain.JobStatusRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[jobID]
	return record, ok
}

// List returns a snapshot of all records for bulk UI consumption.
func (r *Registry) List() []domain.JobStatusRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.JobStatusRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	return out
}

// Remove drops a job id from the mirror. The server-side job is unaffected.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, jobID)
}
