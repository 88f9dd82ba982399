package track

import (
	"context"
	"time"

	"clipforge/internal/domain"
)

// poll issues one status read per tick until the job settles or the poller
// is cancelled. A failed read is logged and polling continues; a single
// transient failure is never escalated to the caller. One poll goroutine
// exists per tracked job id, enforced by the arena in startTracking.
func (t *Tracker) poll(ctx context.Context, jobID string) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := t.backend.GetJobStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Warn().Err(err).Str("job_id", jobID).Msg("track: poll failed, will retry")
			continue
		}

		t.send(statusUpdate{jobID: jobID, status: res.Status, detail: res.ProgressDetail, source: domain.SourcePoll})

		if res.Status.IsTerminal() {
			// The merge loop cancels the arena slot; this goroutine just
			// stops ticking.
			return
		}
	}
}
