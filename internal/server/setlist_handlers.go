package server

import (
	"encoding/json"
	"net/http"

	"bandstand/internal/setlist"
)

// handleGetSetlists returns metadata for all stored setlists.
func (ss *SetlistServer) handleGetSetlists(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	lists, err := ss.db.ListSetlists()
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving setlists", err)
		return
	}

	ss.respondJSON(w, lists)
}

// handleCreateSetlist creates a new setlist (POST json name).
func (ss *SetlistServer) handleCreateSetlist(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ss.requireEditor(w, r) {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	req.Name = sanitizeInput(req.Name)
	if vErr := ss.validateSetlistName(req.Name); vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	id, err := ss.db.CreateSetlist(req.Name)
	if err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error creating setlist", err)
		return
	}

	// Persist the fresh aggregate so the mandatory first block exists on load.
	if err := ss.db.SaveSetlist(id, setlist.New(req.Name)); err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error saving setlist", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, map[string]interface{}{
		"id":      id,
		"message": "Setlist created successfully",
	})
}

// handleSetlistByID serves GET (load), PUT (rename) and DELETE for one setlist.
func (ss *SetlistServer) handleSetlistByID(w http.ResponseWriter, r *http.Request, pathParts []string) {
	id, vErr := ss.validateSetlistID(pathParts[2])
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	switch r.Method {
	case "GET":
		s, err := ss.db.LoadSetlist(id)
		if err != nil {
			ss.respondWithError(w, r, http.StatusNotFound, "Setlist not found", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		ss.respondJSON(w, s)

	case "PUT":
		if !ss.requireEditor(w, r) {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		req.Name = sanitizeInput(req.Name)
		if vErr := ss.validateSetlistName(req.Name); vErr != nil {
			ss.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
		if err := ss.db.RenameSetlist(id, req.Name); err != nil {
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error renaming setlist", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		ss.respondJSON(w, map[string]string{"message": "Setlist renamed"})

	case "DELETE":
		if !ss.requireEditor(w, r) {
			return
		}
		if err := ss.db.DeleteSetlist(id); err != nil {
			ss.respondWithError(w, r, http.StatusInternalServerError, "Error deleting setlist", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		ss.respondJSON(w, map[string]string{"message": "Setlist deleted"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleBlockOperations routes block and item mutations under
// /api/setlists/{id}/blocks[...]. Every mutation loads the aggregate,
// applies the operation in memory and saves it back in one transaction.
func (ss *SetlistServer) handleBlockOperations(w http.ResponseWriter, r *http.Request, pathParts []string) {
	id, vErr := ss.validateSetlistID(pathParts[2])
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}
	if !ss.requireEditor(w, r) {
		return
	}

	unlock := ss.lockSetlist(id)
	defer unlock()

	s, err := ss.db.LoadSetlist(id)
	if err != nil {
		ss.respondWithError(w, r, http.StatusNotFound, "Setlist not found", err)
		return
	}

	switch {
	// POST /api/setlists/{id}/blocks
	case len(pathParts) == 4 && r.Method == "POST":
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		req.Name = sanitizeInput(req.Name)
		if vErr := ss.validateSetlistName(req.Name); vErr != nil {
			ss.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
		s.AddBlock(req.Name)

	// /api/setlists/{id}/blocks/{bidx}
	case len(pathParts) == 5:
		blockIdx, vErr := ss.validateIndex("block_index", pathParts[4])
		if vErr != nil {
			ss.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
		switch r.Method {
		case "PUT":
			var req struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
				return
			}
			req.Name = sanitizeInput(req.Name)
			if vErr := ss.validateSetlistName(req.Name); vErr != nil {
				ss.respondWithValidationError(w, r, []ValidationError{*vErr})
				return
			}
			s.RenameBlock(blockIdx, req.Name)
		case "DELETE":
			s.DeleteBlock(blockIdx)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

	// /api/setlists/{id}/blocks/{bidx}/move or .../items
	case len(pathParts) == 6:
		blockIdx, vErr := ss.validateIndex("block_index", pathParts[4])
		if vErr != nil {
			ss.respondWithValidationError(w, r, []ValidationError{*vErr})
			return
		}
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch pathParts[5] {
		case "move":
			var req struct {
				Delta int `json:"delta"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
				return
			}
			s.MoveBlock(blockIdx, req.Delta)
		case "items":
			if !ss.addItemToBlock(w, r, s, blockIdx) {
				return
			}
		default:
			http.NotFound(w, r)
			return
		}

	// DELETE /api/setlists/{id}/blocks/{bidx}/items/{iidx}
	case len(pathParts) == 7 && pathParts[5] == "items":
		blockIdx, itemIdx, ok := ss.parseItemPath(w, r, pathParts)
		if !ok {
			return
		}
		if r.Method != "DELETE" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.DeleteItem(blockIdx, itemIdx)

	// POST /api/setlists/{id}/blocks/{bidx}/items/{iidx}/{op}
	case len(pathParts) == 8 && pathParts[5] == "items":
		blockIdx, itemIdx, ok := ss.parseItemPath(w, r, pathParts)
		if !ok {
			return
		}
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !ss.applyItemOperation(w, r, s, blockIdx, itemIdx, pathParts[7]) {
			return
		}

	default:
		http.NotFound(w, r)
		return
	}

	if err := ss.db.SaveSetlist(id, s); err != nil {
		ss.respondWithError(w, r, http.StatusInternalServerError, "Error saving setlist", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, s)
}

// addItemToBlock appends a music (from the catalog) or a pause to a block.
// Returns false when a response has already been written.
func (ss *SetlistServer) addItemToBlock(w http.ResponseWriter, r *http.Request, s *setlist.Setlist, blockIdx int) bool {
	var req struct {
		SongID     int    `json:"songId"`
		PauseLabel string `json:"pauseLabel"`
		InlineText string `json:"inlineText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}

	if req.SongID > 0 {
		song, err := ss.db.GetSongByID(req.SongID)
		if err != nil {
			ss.respondWithError(w, r, http.StatusNotFound, "Song not found", err)
			return false
		}
		s.AddMusicFromCatalog(blockIdx, *song)
		if req.InlineText != "" {
			if item, ok := s.ItemAt(blockIdx, len(s.Blocks[blockIdx].Items)-1); ok {
				if music, isMusic := item.(setlist.Music); isMusic {
					music.InlineText = req.InlineText
					s.Blocks[blockIdx].Items[len(s.Blocks[blockIdx].Items)-1] = music
				}
			}
		}
		return true
	}

	if req.PauseLabel != "" {
		s.AddPause(blockIdx, sanitizeInput(req.PauseLabel))
		return true
	}

	ss.respondWithValidationError(w, r, []ValidationError{{
		Field:   "item",
		Message: "Either songId or pauseLabel is required",
		Code:    "MISSING_ITEM_PAYLOAD",
	}})
	return false
}

// applyItemOperation handles move, retune and simplified toggles on one item.
// Returns false when a response has already been written.
func (ss *SetlistServer) applyItemOperation(w http.ResponseWriter, r *http.Request, s *setlist.Setlist, blockIdx, itemIdx int, op string) bool {
	switch op {
	case "move":
		var req struct {
			Delta int `json:"delta"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return false
		}
		s.MoveItem(blockIdx, itemIdx, req.Delta)
		return true

	case "retune":
		var req struct {
			Key string `json:"key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return false
		}
		key, vErr := ss.validateKeyName(req.Key)
		if vErr != nil {
			ss.respondWithValidationError(w, r, []ValidationError{*vErr})
			return false
		}
		s.Retune(blockIdx, itemIdx, key)
		return true

	case "simplified":
		var req struct {
			UseSimplified bool `json:"useSimplified"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ss.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return false
		}
		s.SetUseSimplified(blockIdx, itemIdx, req.UseSimplified)
		return true

	default:
		http.NotFound(w, r)
		return false
	}
}

// parseItemPath extracts and validates block and item indices from
// pathParts[4] and pathParts[6].
func (ss *SetlistServer) parseItemPath(w http.ResponseWriter, r *http.Request, pathParts []string) (int, int, bool) {
	blockIdx, vErr := ss.validateIndex("block_index", pathParts[4])
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return 0, 0, false
	}
	itemIdx, vErr := ss.validateIndex("item_index", pathParts[6])
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return 0, 0, false
	}
	return blockIdx, itemIdx, true
}
