package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clipforge/internal/domain"
)

type reconcileRequest struct {
	CurrentUsage int    `json:"current_usage"`
	Limit        int    `json:"limit"`
	PlanName     string `json:"plan_name"`
}

func (a *App) UsageList(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": a.Ledger.List()})
}

// UsageReconcile overwrites a metric with the authoritative entry reported by
// the billing backend. The dashboard calls this after fetching plan usage so
// optimistic deltas from job submissions get squared with server truth.
func (a *App) UsageReconcile(w http.ResponseWriter, r *http.Request) {
	metric := chi.URLParam(r, "metric")
	if metric == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "metric required")
		return
	}
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Limit < 0 || req.CurrentUsage < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "usage and limit must be non-negative")
		return
	}
	a.Ledger.Reconcile(metric, domain.UsageEntry{
		CurrentUsage: req.CurrentUsage,
		Limit:        req.Limit,
		PlanName:     req.PlanName,
	})
	entry, _ := a.Ledger.Get(metric)
	a.json(w, http.StatusOK, entry)
}
