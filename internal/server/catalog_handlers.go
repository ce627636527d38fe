package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"bandstand/internal/catalog"
	"bandstand/pkg/models"
)

// handleGetSongs returns catalog songs, optionally filtered by search.
func (ss *SetlistServer) handleGetSongs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	searchQuery := r.URL.Query().Get("search")
	if vErr := ss.validateSearchQuery(searchQuery); vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	var songs []models.CatalogSong
	var err error

	if searchQuery != "" {
		songs, err = ss.db.SearchSongs(searchQuery)
	} else {
		songs, err = ss.db.GetAllSongs()
	}

	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving songs", err)
		return
	}

	ss.respondJSON(w, songs)
}

// handleGetSongCount responds with a JSON count of all catalog songs.
func (ss *SetlistServer) handleGetSongCount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	songs, err := ss.db.GetAllSongs()
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving song count", err)
		return
	}

	ss.respondJSON(w, map[string]int{"count": len(songs)})
}

// handleGetSongByID returns one catalog song: GET /api/songs/{id}
func (ss *SetlistServer) handleGetSongByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/songs/")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		ss.respondWithValidationError(w, r, []ValidationError{{
			Field:   "song_id",
			Message: "Song ID must be a positive integer",
			Code:    "INVALID_SONG_ID",
		}})
		return
	}

	song, err := ss.db.GetSongByID(id)
	if err != nil {
		ss.respondWithError(w, r, http.StatusNotFound, "Song not found", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, song)
}

// handleImportCSV imports the band's sheet from the request body
// (POST text/csv).
func (ss *SetlistServer) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ss.requireEditor(w, r) {
		return
	}

	result, err := catalog.ImportCSV(ss.db, r.Body, ss.logger)
	if err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "CSV import failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, result)
}

// handleImportCSVFromURL fetches and imports a published sheet (POST json url).
func (ss *SetlistServer) handleImportCSVFromURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ss.requireEditor(w, r) {
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if vErr := ss.validateURL(req.URL); vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	result, err := catalog.ImportCSVFromURL(ss.db, req.URL, ss.logger)
	if err != nil {
		ss.respondWithError(w, r, http.StatusBadGateway, "CSV import failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, result)
}
