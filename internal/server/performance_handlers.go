package server

import (
	"encoding/json"
	"net/http"
)

// handleGetPerformanceState returns the shared live cursor.
func (ss *SetlistServer) handleGetPerformanceState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, ss.performance.GetState())
}

// handleStartPerformance puts a setlist on stage (POST json setlistId).
func (ss *SetlistServer) handleStartPerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ss.requireEditor(w, r) {
		return
	}

	var req struct {
		SetlistID int `json:"setlistId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	// Confirm the setlist exists before putting it on stage.
	if _, err := ss.db.LoadSetlist(req.SetlistID); err != nil {
		ss.respondWithError(w, r, http.StatusNotFound, "Setlist not found", err)
		return
	}

	ss.performance.Start(req.SetlistID)

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, ss.performance.GetState())
}

// handleSetPerformanceCursor moves the shared cursor (POST json block/item).
func (ss *SetlistServer) handleSetPerformanceCursor(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ss.requireEditor(w, r) {
		return
	}

	var req struct {
		BlockIndex int `json:"blockIndex"`
		ItemIndex  int `json:"itemIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if req.BlockIndex < 0 || req.ItemIndex < 0 {
		ss.respondWithValidationError(w, r, []ValidationError{{
			Field:   "cursor",
			Message: "Cursor indices must not be negative",
			Code:    "INVALID_CURSOR",
		}})
		return
	}

	ss.performance.SetCursor(req.BlockIndex, req.ItemIndex)

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, ss.performance.GetState())
}

// handleStopPerformance clears the live state (POST).
func (ss *SetlistServer) handleStopPerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ss.requireEditor(w, r) {
		return
	}

	ss.performance.Stop()

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, ss.performance.GetState())
}
