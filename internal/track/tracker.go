package track

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clipforge/internal/domain"
	"clipforge/internal/infra"
	"clipforge/internal/quota"
	"clipforge/internal/realtime"
	"clipforge/internal/renderapi"
)

// Backend is the job-execution API surface the tracker consumes.
type Backend interface {
	CreateJob(ctx context.Context, req renderapi.CreateJobRequest) (*renderapi.CreateJobResponse, error)
	GetJobStatus(ctx context.Context, jobID string) (*renderapi.JobStatusResponse, error)
	ListJobs(ctx context.Context, ownerID string) ([]domain.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// Subscription is a live per-job push channel.
type Subscription interface {
	Events() <-chan realtime.Event
	Unsubscribe()
}

// SubscribeFunc opens a push subscription filtered to one job id.
type SubscribeFunc func(ctx context.Context, jobID string) (Subscription, error)

// Options configures a Tracker.
type Options struct {
	Backend      Backend
	Subscribe    SubscribeFunc // optional; polling alone still converges
	Ledger       *quota.Ledger // optional
	QuotaMetric  string
	OwnerID      string
	PollInterval time.Duration
	Logger       *infra.Logger
}

// CreateJobResult is the accepted-submission acknowledgement handed to the UI.
type CreateJobResult struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

type statusUpdate struct {
	jobID  string
	status domain.JobStatus
	detail *domain.ProgressDetail
	source domain.UpdateSource
}

// tracking is one job's arena slot: its poller cancel plus push
// subscription, with a disposed flag so teardown is provably idempotent.
type tracking struct {
	cancelPoll context.CancelFunc
	sub        Subscription
	disposed   bool
}

// Tracker follows render jobs from submission to terminal status. Each
// active job gets a push subscription and a status poller; both channels
// feed one update channel consumed by a single run loop, so registry writes
// and teardown side effects are serialized and interleaving order only
// matters at the registry's terminal guard.
type Tracker struct {
	backend      Backend
	subscribe    SubscribeFunc
	ledger       *quota.Ledger
	metric       string
	ownerID      string
	pollInterval time.Duration
	logger       *infra.Logger

	registry *Registry
	guard    *Guard

	updates chan statusUpdate
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	arena  map[string]*tracking
	closed bool

	closeOnce sync.Once

	jobsMu sync.RWMutex
	jobs   []domain.Job
}

// NewTracker wires a tracker and starts its merge loop.
func NewTracker(opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		backend:      opts.Backend,
		subscribe:    opts.Subscribe,
		ledger:       opts.Ledger,
		metric:       opts.QuotaMetric,
		ownerID:      opts.OwnerID,
		pollInterval: interval,
		logger:       logger,
		registry:     NewRegistry(),
		guard:        NewGuard(),
		updates:      make(chan statusUpdate, 16),
		ctx:          ctx,
		cancel:       cancel,
		arena:        make(map[string]*tracking),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// CreateJob submits a render job. Identical concurrent submissions collapse
// to one backend call; the quota metric is adjusted optimistically and
// reverted if the backend rejects the request. On success the job is
// registered as pending and both notification channels start.
func (t *Tracker) CreateJob(ctx context.Context, req renderapi.CreateJobRequest) (*CreateJobResult, error) {
	if t.isClosed() {
		return nil, domain.ErrTrackerClosed
	}
	fingerprint := Fingerprint(req)
	if !t.guard.TryAcquire(fingerprint) {
		return nil, domain.ErrDuplicateSubmission
	}
	defer t.guard.Release(fingerprint)

	optimistic := false
	if t.ledger != nil && t.metric != "" {
		optimistic = t.ledger.ApplyOptimistic(t.metric, 1)
	}

	res, err := t.backend.CreateJob(ctx, req)
	if err != nil {
		if optimistic {
			t.ledger.Revert(t.metric, 1)
		}
		return nil, err
	}

	t.registry.Register(res.JobID)
	t.startTracking(res.JobID)
	t.logger.Info().Str("job_id", res.JobID).Msg("track: job submitted")
	return &CreateJobResult{JobID: res.JobID, Status: domain.JobStatusPending}, nil
}

// Status returns the last-known status for a job id, pending when nothing
// has been observed yet.
func (t *Tracker) Status(jobID string) domain.JobStatus {
	return t.registry.Get(jobID)
}

// Record returns the full mirror row for a job id.
func (t *Tracker) Record(jobID string) (domain.JobStatusRecord, bool) {
	return t.registry.Record(jobID)
}

// Snapshot returns all mirror rows for bulk UI consumption.
func (t *Tracker) Snapshot() []domain.JobStatusRecord {
	return t.registry.List()
}

// ListJobs returns the owner's jobs with live statuses overlaid from the
// mirror. When the backend read fails the last refreshed list is served.
func (t *Tracker) ListJobs(ctx context.Context) ([]domain.Job, error) {
	jobs, err := t.backend.ListJobs(ctx, t.ownerID)
	if err != nil {
		t.jobsMu.RLock()
		cached := make([]domain.Job, len(t.jobs))
		copy(cached, t.jobs)
		t.jobsMu.RUnlock()
		if len(cached) == 0 {
			return nil, err
		}
		t.logger.Warn().Err(err).Msg("track: list refresh failed, serving cached jobs")
		return t.overlay(cached), nil
	}
	t.storeJobs(jobs)
	return t.overlay(jobs), nil
}

// DeleteJob removes the job from the backend and stops tracking it.
func (t *Tracker) DeleteJob(ctx context.Context, jobID string) error {
	if err := t.backend.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	t.cancelTracking(jobID)
	t.registry.Remove(jobID)
	t.mu.Lock()
	delete(t.arena, jobID)
	t.mu.Unlock()
	t.logger.Info().Str("job_id", jobID).Msg("track: job deleted")
	return nil
}

// Close tears down all tracking and stops the merge loop. It corresponds to
// the owning UI scope going away and is safe to call more than once.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		ids := make([]string, 0, len(t.arena))
		for id := range t.arena {
			ids = append(ids, id)
		}
		t.mu.Unlock()
		for _, id := range ids {
			t.cancelTracking(id)
		}
		t.cancel()
		t.wg.Wait()
	})
}

func (t *Tracker) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// run is the single merge loop. All registry writes and terminal side
// effects happen here, in delivery order.
func (t *Tracker) run() {
	defer t.wg.Done()
	for {
		select {
		case <-t.ctx.Done():
			return
		case u := <-t.updates:
			t.merge(u)
		}
	}
}

func (t *Tracker) merge(u statusUpdate) {
	if !t.registry.ApplyUpdate(u.jobID, u.status, u.detail, u.source) {
		// Unknown id or already terminal; duplicate terminal notifications
		// land here and must not repeat side effects.
		return
	}
	t.logger.Debug().
		Str("job_id", u.jobID).
		Str("status", string(u.status)).
		Str("source", string(u.source)).
		Msg("track: status update")
	if u.status.IsTerminal() {
		t.cancelTracking(u.jobID)
		t.refreshJobs()
		t.logger.Info().Str("job_id", u.jobID).Str("status", string(u.status)).Msg("track: job reached terminal status")
	}
}

// startTracking opens the push subscription and poller pair for a job id.
// Starting an id that is already tracked tears the prior pair down first.
func (t *Tracker) startTracking(jobID string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if prior, ok := t.arena[jobID]; ok && !prior.disposed {
		t.disposeLocked(prior)
	}
	pollCtx, cancelPoll := context.WithCancel(t.ctx)
	slot := &tracking{cancelPoll: cancelPoll}
	t.arena[jobID] = slot
	t.mu.Unlock()

	if t.subscribe != nil {
		sub, err := t.subscribe(t.ctx, jobID)
		if err != nil {
			// Polling still converges on its own.
			t.logger.Warn().Err(err).Str("job_id", jobID).Msg("track: push channel unavailable")
		} else {
			t.mu.Lock()
			if slot.disposed {
				t.mu.Unlock()
				sub.Unsubscribe()
			} else {
				slot.sub = sub
				t.mu.Unlock()
				t.wg.Add(1)
				go t.forwardPush(jobID, sub)
			}
		}
	}

	t.wg.Add(1)
	go t.poll(pollCtx, jobID)
}

// cancelTracking converges a job id to zero outstanding timers and
// subscriptions. It is idempotent: the disposed flag, not the state of the
// underlying timer, decides whether there is anything left to do.
func (t *Tracker) cancelTracking(jobID string) {
	t.mu.Lock()
	slot, ok := t.arena[jobID]
	if !ok || slot.disposed {
		t.mu.Unlock()
		return
	}
	t.disposeLocked(slot)
	t.mu.Unlock()
}

func (t *Tracker) disposeLocked(slot *tracking) {
	slot.disposed = true
	if slot.cancelPoll != nil {
		slot.cancelPoll()
	}
	if slot.sub != nil {
		slot.sub.Unsubscribe()
	}
}

func (t *Tracker) forwardPush(jobID string, sub Subscription) {
	defer t.wg.Done()
	for ev := range sub.Events() {
		t.send(statusUpdate{jobID: jobID, status: ev.Status, detail: ev.ProgressDetail, source: domain.SourcePush})
	}
}

func (t *Tracker) send(u statusUpdate) {
	select {
	case t.updates <- u:
	case <-t.ctx.Done():
	}
}

// refreshJobs picks up server-derived fields (artifact URL, duration) after
// a job settles.
func (t *Tracker) refreshJobs() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(t.ctx, 15*time.Second)
		defer cancel()
		jobs, err := t.backend.ListJobs(ctx, t.ownerID)
		if err != nil {
			t.logger.Warn().Err(err).Msg("track: post-terminal list refresh failed")
			return
		}
		t.storeJobs(jobs)
	}()
}

func (t *Tracker) storeJobs(jobs []domain.Job) {
	t.jobsMu.Lock()
	t.jobs = jobs
	t.jobsMu.Unlock()
}

// overlay replaces server statuses with fresher mirror rows for jobs still
// being tracked.
func (t *Tracker) overlay(jobs []domain.Job) []domain.Job {
	out := make([]domain.Job, len(jobs))
	copy(out, jobs)
	for i := range out {
		record, ok := t.registry.Record(out[i].ID)
		if !ok {
			continue
		}
		out[i].Status = record.Status
		if record.ProgressDetail != nil {
			out[i].ProgressDetail = record.ProgressDetail
		}
	}
	return out
}
