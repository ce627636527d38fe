package server

import (
	"errors"
	"fmt"
	"net/http"

	"bandstand/internal/chartstore"
	"bandstand/internal/chordsheet"
	"bandstand/internal/musickey"
	"bandstand/internal/setlist"
)

// PageResponse is the rendered page a performer sees: the header fields,
// the display text and the look-ahead footer.
type PageResponse struct {
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	OriginalKey string `json:"originalKey,omitempty"`
	CurrentKey  string `json:"currentKey,omitempty"`
	BPM         int    `json:"bpm,omitempty"`
	BlockName   string `json:"blockName"`
	IsPause     bool   `json:"isPause"`
	DisplayText string `json:"displayText"`
	FooterMode  string `json:"footerMode"`
	FooterText  string `json:"footerText,omitempty"`
}

// handleGetPage renders one setlist page: GET /api/setlists/{id}/page?block=&item=
func (ss *SetlistServer) handleGetPage(w http.ResponseWriter, r *http.Request, pathParts []string) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, vErr := ss.validateSetlistID(pathParts[2])
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}
	blockIdx, vErr := ss.validateIndex("block", r.URL.Query().Get("block"))
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}
	itemIdx, vErr := ss.validateIndex("item", r.URL.Query().Get("item"))
	if vErr != nil {
		ss.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	s, err := ss.db.LoadSetlist(id)
	if err != nil {
		ss.respondWithError(w, r, http.StatusNotFound, "Setlist not found", err)
		return
	}

	item, ok := s.ItemAt(blockIdx, itemIdx)
	if !ok {
		ss.respondWithError(w, r, http.StatusNotFound, "No item at this position", nil)
		return
	}

	page := PageResponse{
		BlockName: s.Blocks[blockIdx].Name,
	}

	switch it := item.(type) {
	case setlist.Pause:
		page.Title = it.Label
		page.IsPause = true
		page.DisplayText = chordsheet.PausePlaceholder

	case setlist.Music:
		page.Title = it.Title
		page.Artist = it.Artist
		page.OriginalKey = it.OriginalKey.String()
		page.CurrentKey = it.CurrentKey.String()
		page.BPM = it.BPM

		text, err := ss.renderChart(it)
		if err != nil {
			switch {
			case errors.Is(err, chartstore.ErrNotFound):
				ss.respondWithError(w, r, http.StatusNotFound, "Chart not found", err)
			case errors.Is(err, chartstore.ErrInvalidRef):
				ss.respondWithError(w, r, http.StatusBadRequest, "Invalid chart reference", err)
			default:
				ss.respondWithError(w, r, http.StatusInternalServerError, "Error reading chart", err)
			}
			return
		}
		page.DisplayText = text
	}

	desc := setlist.NextUp(s, blockIdx, itemIdx)
	page.FooterMode = string(desc.FooterMode)
	page.FooterText = footerText(desc)

	w.Header().Set("Content-Type", "application/json")
	ss.respondJSON(w, page)
}

// renderChart produces the display text for a music item, going through
// the page cache. A music with no stored chart falls back to its inline
// text, transposed the same way.
func (ss *SetlistServer) renderChart(m setlist.Music) (string, error) {
	ref := m.ActiveChartRef()
	steps := musickey.SemitoneDiff(m.OriginalKey, m.CurrentKey)

	if ref == "" {
		return chordsheet.RenderDisplayText(m.InlineText, m.OriginalKey, m.CurrentKey), nil
	}

	if text, ok := ss.pageCache.GetPage(ref, steps); ok {
		return text, nil
	}

	raw, err := ss.charts.Read(ref)
	if err != nil {
		return "", err
	}

	text := chordsheet.RenderDisplayText(raw, m.OriginalKey, m.CurrentKey)
	ss.pageCache.SetPage(ref, steps, text)
	return text, nil
}

// footerText builds the human-readable look-ahead line for a page footer.
// END_OF_BLOCK deliberately names only the fact, not the next item.
func footerText(desc setlist.PageDescriptor) string {
	switch desc.FooterMode {
	case setlist.FooterNextMusic:
		music, ok := desc.FooterItem.(setlist.Music)
		if !ok {
			return ""
		}
		if music.CurrentKey.IsValid() {
			return fmt.Sprintf("A seguir: %s (%s)", music.Title, music.CurrentKey.String())
		}
		return fmt.Sprintf("A seguir: %s", music.Title)
	case setlist.FooterNextPause:
		pause, ok := desc.FooterItem.(setlist.Pause)
		if !ok {
			return ""
		}
		return fmt.Sprintf("A seguir: pausa (%s)", pause.Label)
	case setlist.FooterEndOfBlock:
		return "Fim do bloco"
	default:
		return ""
	}
}
