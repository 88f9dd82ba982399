package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clipforge/internal/domain"
	"clipforge/internal/middleware"
	"clipforge/internal/renderapi"
)

type createJobRequest struct {
	ProductID string   `json:"product_id"`
	MediaIDs  []string `json:"media_ids"`
	Template  string   `json:"template"`
	Title     string   `json:"title"`
	Script    string   `json:"script"`
}

type statusResponse struct {
	JobID          string                 `json:"job_id"`
	Status         domain.JobStatus       `json:"status"`
	RawStatus      string                 `json:"raw_status,omitempty"`
	Message        string                 `json:"message"`
	ProgressDetail *domain.ProgressDetail `json:"progress_detail,omitempty"`
	Source         domain.UpdateSource    `json:"last_update_source,omitempty"`
}

func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.ProductID == "" || len(req.MediaIDs) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "product_id and media_ids are required")
		return
	}

	res, err := a.Tracker.CreateJob(r.Context(), renderapi.CreateJobRequest{
		ProductID: req.ProductID,
		MediaIDs:  req.MediaIDs,
		Template:  req.Template,
		Title:     req.Title,
		Script:    req.Script,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateSubmission):
			a.error(w, http.StatusConflict, "duplicate_submission", "an identical submission is already in flight")
		case errors.Is(err, domain.ErrQuotaExceeded):
			a.error(w, http.StatusForbidden, "quota_exceeded", "plan limit reached")
		case errors.Is(err, domain.ErrTrackerClosed):
			a.error(w, http.StatusServiceUnavailable, "shutting_down", "service is shutting down")
		default:
			a.Logger.Error().Err(err).Msg("handlers: job submission failed")
			a.error(w, http.StatusBadGateway, "backend", "failed to submit render job")
		}
		return
	}
	a.json(w, http.StatusAccepted, res)
}

func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Tracker.ListJobs(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list jobs failed")
		a.error(w, http.StatusBadGateway, "backend", "failed to list jobs")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": jobs})
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())

	record, ok := a.Tracker.Record(jobID)
	if !ok {
		// Unknown to the mirror; pending covers the window between accepted
		// submission and the first observed update.
		status := a.Tracker.Status(jobID)
		a.json(w, http.StatusOK, statusResponse{
			JobID:   jobID,
			Status:  status,
			Message: domain.StatusMessage(status, nil, locale),
		})
		return
	}
	a.json(w, http.StatusOK, statusResponse{
		JobID:          record.JobID,
		Status:         record.Status,
		RawStatus:      record.RawStatus,
		Message:        domain.StatusMessage(domain.JobStatus(record.RawStatus), record.ProgressDetail, locale),
		ProgressDetail: record.ProgressDetail,
		Source:         record.LastUpdateSource,
	})
}

func (a *App) JobsDelete(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	if err := a.Tracker.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: delete job failed")
		a.error(w, http.StatusBadGateway, "backend", "failed to delete job")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}
