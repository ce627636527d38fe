package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"bandstand/internal/chartstore"
	"bandstand/internal/chordsheet"
)

// Chart bodies travel as plain text: the marker format is line-oriented
// and editors PUT the raw document, not a JSON wrapper.

// handleCreateChart stores a new chart and returns its ref (POST text body).
func (ss *SetlistServer) handleCreateChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ss.requireEditor(w, r) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Error reading chart body", err)
		return
	}

	ref, err := ss.charts.Create(string(body))
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error storing chart", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, map[string]string{"ref": ref})
}

// handleChartByRef serves GET, PUT and DELETE for /api/charts/{ref},
// plus GET /api/charts/{ref}/preview.
func (ss *SetlistServer) handleChartByRef(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimPrefix(r.URL.Path, "/api/charts/")
	if ref == "" {
		ss.respondWithError(w, r, http.StatusBadRequest, "Chart ref is required", nil)
		return
	}

	if rest, ok := strings.CutSuffix(ref, "/preview"); ok {
		ss.handleChartPreview(w, r, rest)
		return
	}

	switch r.Method {
	case "GET":
		text, err := ss.charts.Read(ref)
		if err != nil {
			ss.respondChartError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := w.Write([]byte(text)); err != nil {
			ss.logger.WithError(err).Error("Failed to write chart response")
		}

	case "PUT":
		if !ss.requireEditor(w, r) {
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Error reading chart body", err)
			return
		}
		if err := ss.charts.Write(ref, string(body)); err != nil {
			ss.respondChartError(w, r, err)
			return
		}
		// Edits invalidate every cached rendering of this chart.
		ss.pageCache.InvalidateRef(ref)
		w.Header().Set("Content-Type", "application/json")
		ss.respondJSON(w, map[string]string{"message": "Chart updated"})

	case "DELETE":
		if !ss.requireEditor(w, r) {
			return
		}
		if err := ss.charts.Delete(ref); err != nil {
			ss.respondChartError(w, r, err)
			return
		}
		ss.pageCache.InvalidateRef(ref)
		w.Header().Set("Content-Type", "application/json")
		ss.respondJSON(w, map[string]string{"message": "Chart deleted"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleChartPreview renders a stored chart at an arbitrary target key
// without touching any setlist. Query params "from" and "to" name the
// origin and target keys.
func (ss *SetlistServer) handleChartPreview(w http.ResponseWriter, r *http.Request, ref string) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	origin, vErr := ss.validateKeyName(r.URL.Query().Get("from"))
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}
	target, vErr := ss.validateKeyName(r.URL.Query().Get("to"))
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	text, err := ss.charts.Read(ref)
	if err != nil {
		ss.respondChartError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(chordsheet.RenderDisplayText(text, origin, target))); err != nil {
		ss.logger.WithError(err).Error("Failed to write preview response")
	}
}

// respondChartError maps chart store errors onto HTTP statuses.
func (ss *SetlistServer) respondChartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chartstore.ErrNotFound):
		ss.respondWithError(w, r, http.StatusNotFound, "Chart not found", err)
	case errors.Is(err, chartstore.ErrInvalidRef):
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid chart reference", err)
	default:
		ss.respondWithError(w, r, http.StatusInternalServerError, "Chart storage error", err)
	}
}
