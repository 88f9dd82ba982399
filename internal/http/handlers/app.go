package handlers

import (
	"encoding/json"
	"net/http"

	"clipforge/internal/infra"
	"clipforge/internal/quota"
	"clipforge/internal/track"
)

// App is the handler container for the dashboard API.
type App struct {
	Tracker *track.Tracker
	Ledger  *quota.Ledger
	Logger  infra.Logger
}

func NewApp(tracker *track.Tracker, ledger *quota.Ledger, logger infra.Logger) *App {
	return &App{Tracker: tracker, Ledger: ledger, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"code": code, "message": message})
}
