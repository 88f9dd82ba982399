package domain

import "time"

// JobStatus enumerates render job lifecycle states.
type JobStatus string

const (
	JobStatusPending             JobStatus = "pending"
	JobStatusProcessing          JobStatus = "processing"
	JobStatusGeneratingAudio     JobStatus = "generating_audio"
	JobStatusProcessingMedia     JobStatus = "processing_media"
	JobStatusRenderingPreparing  JobStatus = "rendering_preparing"
	JobStatusRenderingProcessing JobStatus = "rendering_processing"
	JobStatusRenderingFinalizing JobStatus = "rendering_finalizing"
	JobStatusCompleted           JobStatus = "completed"
	JobStatusFailed              JobStatus = "failed"
)

// Stages lists the traversal order of a successful run. failed is reachable
// from any non-terminal state and is not part of the happy path.
var Stages = []JobStatus{
	JobStatusPending,
	JobStatusProcessing,
	JobStatusGeneratingAudio,
	JobStatusProcessingMedia,
	JobStatusRenderingPreparing,
	JobStatusRenderingProcessing,
	JobStatusRenderingFinalizing,
	JobStatusCompleted,
}

// IsTerminal reports whether no further transitions are accepted from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Known reports whether s is one of the defined lifecycle states.
func (s JobStatus) Known() bool {
	if s == JobStatusFailed {
		return true
	}
	for _, stage := range Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Normalize maps unknown backend statuses to processing for display purposes.
// Callers that need the verbatim value keep the raw string separately.
func (s JobStatus) Normalize() JobStatus {
	if s.Known() {
		return s
	}
	return JobStatusProcessing
}

// ProgressDetail carries the backend's free-form progress report. The shape
// round-trips unchanged between backend and registry.
type ProgressDetail struct {
	Message    string `json:"message,omitempty"`
	Step       int    `json:"step,omitempty"`
	TotalSteps int    `json:"total_steps,omitempty"`
}

// Job is the backend's view of one render job. Durable state is owned by the
// job-execution backend; clipforge only mirrors it for the dashboard.
type Job struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Title          string          `json:"title,omitempty"`
	Status         JobStatus       `json:"status"`
	ProgressDetail *ProgressDetail `json:"progress_detail,omitempty"`
	ArtifactURL    string          `json:"artifact_url,omitempty"`
	DurationSec    float64         `json:"duration_sec,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UpdateSource identifies which notification channel produced a status update.
type UpdateSource string

const (
	SourcePush UpdateSource = "push"
	SourcePoll UpdateSource = "poll"
)

// JobStatusRecord is the client-side mirror row kept by the registry.
// LastUpdatedAt is monotonically non-decreasing per job id, and once the
// status is terminal no further writes are accepted.
type JobStatusRecord struct {
	JobID            string
	Status           JobStatus
	RawStatus        string
	ProgressDetail   *ProgressDetail
	LastUpdatedAt    time.Time
	LastUpdateSource UpdateSource
}
