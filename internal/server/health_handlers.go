package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Charts    string                 `json:"charts"`
	Songs     int                    `json:"songCount"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (ss *SetlistServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Charts:    "ok",
		Details:   make(map[string]interface{}),
	}

	if err := ss.db.CheckHealth(); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	}

	if _, err := os.Stat(ss.charts.Dir()); err != nil {
		health.Status = "unhealthy"
		health.Charts = "error"
		health.Details["charts_error"] = err.Error()
	}

	songs, err := ss.db.GetAllSongs()
	if err != nil {
		health.Details["song_count_error"] = err.Error()
	} else {
		health.Songs = len(songs)
	}

	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}
