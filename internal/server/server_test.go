package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bandstand/internal/config"
	"bandstand/internal/database"
	"bandstand/internal/setlist"
)

func newTestServer(t *testing.T) (*SetlistServer, http.Handler) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Charts.Dir = t.TempDir()
	cfg.Charts.WatchForChanges = false
	cfg.Catalog.ScanOnStartup = false
	cfg.Logging.RequestLogging = false
	cfg.Auth.Enabled = false
	cfg.Tunnel.Enabled = false

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ss, err := NewSetlistServer(cfg, db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ss.logger.SetOutput(io.Discard)

	return ss, ss.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func createTestSetlist(t *testing.T, handler http.Handler, name string) int {
	t.Helper()
	rec := doJSON(t, handler, "POST", "/api/setlists/create", map[string]string{"name": name})
	if rec.Code != http.StatusOK {
		t.Fatalf("create setlist: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID int `json:"id"`
	}
	decodeBody(t, rec, &resp)
	return resp.ID
}

func seedSong(t *testing.T, ss *SetlistServer, title, key, chartRef string) int {
	t.Helper()
	csvBody := fmt.Sprintf("Título,Artista,Tom,BPM,Cifra\n%s,Banda,%s,100,%s\n", title, key, chartRef)
	req := httptest.NewRequest("POST", "/api/catalog/import", strings.NewReader(csvBody))
	rec := httptest.NewRecorder()
	ss.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("CSV import: status %d body %s", rec.Code, rec.Body.String())
	}

	songs, err := ss.db.SearchSongs(title)
	if err != nil || len(songs) == 0 {
		t.Fatalf("imported song not found: %v", err)
	}
	return songs[0].ID
}

func TestCreateAndLoadSetlist(t *testing.T) {
	_, handler := newTestServer(t)

	id := createTestSetlist(t, handler, "Ensaio de quinta")

	rec := doJSON(t, handler, "GET", fmt.Sprintf("/api/setlists/%d", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("load: status %d", rec.Code)
	}
	var s setlist.Setlist
	decodeBody(t, rec, &s)
	if s.Name != "Ensaio de quinta" {
		t.Errorf("name = %q", s.Name)
	}
	if len(s.Blocks) != 1 {
		t.Errorf("fresh setlist should load with one block, got %d", len(s.Blocks))
	}
}

func TestSetlistBlockAndItemFlow(t *testing.T) {
	ss, handler := newTestServer(t)
	id := createTestSetlist(t, handler, "Show")
	songID := seedSong(t, ss, "Evidências", "G", "")

	// Add a second block
	rec := doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks", id), map[string]string{"name": "Bis"})
	if rec.Code != http.StatusOK {
		t.Fatalf("add block: %d %s", rec.Code, rec.Body.String())
	}

	// Add music then a pause to block 0
	rec = doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items", id), map[string]int{"songId": songID})
	if rec.Code != http.StatusOK {
		t.Fatalf("add music: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items", id), map[string]string{"pauseLabel": "Troca de violão"})
	if rec.Code != http.StatusOK {
		t.Fatalf("add pause: %d %s", rec.Code, rec.Body.String())
	}

	// Retune the music to A
	rec = doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items/0/retune", id), map[string]string{"key": "A"})
	if rec.Code != http.StatusOK {
		t.Fatalf("retune: %d %s", rec.Code, rec.Body.String())
	}

	var s setlist.Setlist
	decodeBody(t, rec, &s)
	music, ok := s.Blocks[0].Items[0].(setlist.Music)
	if !ok {
		t.Fatalf("first item should be music, got %T", s.Blocks[0].Items[0])
	}
	if music.CurrentKey.Root != "A" || music.OriginalKey.Root != "G" {
		t.Errorf("retune keys: original %v current %v", music.OriginalKey, music.CurrentKey)
	}

	// Invalid key name must be rejected up front
	rec = doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items/0/retune", id), map[string]string{"key": "H"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("retune with bad key: status %d, want 400", rec.Code)
	}
}

func TestDeleteLastBlockIsRefusedSilently(t *testing.T) {
	_, handler := newTestServer(t)
	id := createTestSetlist(t, handler, "Show")

	rec := doJSON(t, handler, "DELETE", fmt.Sprintf("/api/setlists/%d/blocks/0", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete block: %d", rec.Code)
	}
	var s setlist.Setlist
	decodeBody(t, rec, &s)
	if len(s.Blocks) != 1 {
		t.Errorf("last block must survive deletion, got %d blocks", len(s.Blocks))
	}
}

func TestGetPageRendersTransposedChart(t *testing.T) {
	ss, handler := newTestServer(t)

	ref, err := ss.charts.Create("|C   G\n You  and I\n")
	if err != nil {
		t.Fatalf("create chart: %v", err)
	}

	id := createTestSetlist(t, handler, "Show")
	songID := seedSong(t, ss, "Minha Música", "C", ref)

	rec := doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items", id), map[string]int{"songId": songID})
	if rec.Code != http.StatusOK {
		t.Fatalf("add music: %d", rec.Code)
	}
	rec = doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items/0/retune", id), map[string]string{"key": "D"})
	if rec.Code != http.StatusOK {
		t.Fatalf("retune: %d", rec.Code)
	}

	rec = doJSON(t, handler, "GET", fmt.Sprintf("/api/setlists/%d/page?block=0&item=0", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("page: %d %s", rec.Code, rec.Body.String())
	}
	var page PageResponse
	decodeBody(t, rec, &page)

	if page.CurrentKey != "D" || page.OriginalKey != "C" {
		t.Errorf("page keys: %q / %q", page.OriginalKey, page.CurrentKey)
	}
	if page.DisplayText != "D   A\nYou  and I\n" {
		t.Errorf("display text = %q", page.DisplayText)
	}
	if page.FooterMode != "NONE" {
		t.Errorf("single-item setlist should end with footer NONE, got %s", page.FooterMode)
	}
}

func TestGetPagePauseAndFooter(t *testing.T) {
	ss, handler := newTestServer(t)
	id := createTestSetlist(t, handler, "Show")
	songID := seedSong(t, ss, "Abertura", "C", "")

	doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items", id), map[string]int{"songId": songID})
	doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items", id), map[string]string{"pauseLabel": "Intervalo"})

	// Music page looks ahead to the pause
	rec := doJSON(t, handler, "GET", fmt.Sprintf("/api/setlists/%d/page?block=0&item=0", id), nil)
	var page PageResponse
	decodeBody(t, rec, &page)
	if page.FooterMode != "NEXT_PAUSE" {
		t.Errorf("footer mode = %s, want NEXT_PAUSE", page.FooterMode)
	}
	if !strings.Contains(page.FooterText, "Intervalo") {
		t.Errorf("footer text = %q", page.FooterText)
	}

	// Pause page shows the placeholder
	rec = doJSON(t, handler, "GET", fmt.Sprintf("/api/setlists/%d/page?block=0&item=1", id), nil)
	decodeBody(t, rec, &page)
	if !page.IsPause || page.DisplayText != "*** PAUSA ***" {
		t.Errorf("pause page = %+v", page)
	}
}

func TestGetPageMissingChartIsTyped404(t *testing.T) {
	ss, handler := newTestServer(t)
	id := createTestSetlist(t, handler, "Show")
	songID := seedSong(t, ss, "Fantasma", "C", "no-such-ref")

	doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items", id), map[string]int{"songId": songID})

	rec := doJSON(t, handler, "GET", fmt.Sprintf("/api/setlists/%d/page?block=0&item=0", id), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing chart should be 404, got %d", rec.Code)
	}
	// The error is structured JSON, never the chart body.
	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	if resp["error"] == nil {
		t.Errorf("expected structured error, got %v", resp)
	}
}

func TestChartCRUDOverHTTP(t *testing.T) {
	_, handler := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/charts", strings.NewReader("|C\n la\n"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create chart: %d", rec.Code)
	}
	var created map[string]string
	decodeBody(t, rec, &created)
	ref := created["ref"]
	if ref == "" {
		t.Fatal("expected a ref")
	}

	rec = doJSON(t, handler, "GET", "/api/charts/"+ref, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "|C\n la\n" {
		t.Errorf("read back: %d %q", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, "DELETE", "/api/charts/"+ref, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = doJSON(t, handler, "GET", "/api/charts/"+ref, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted chart should 404, got %d", rec.Code)
	}
}

func TestConcurrentEditsAreSerialized(t *testing.T) {
	_, handler := newTestServer(t)
	id := createTestSetlist(t, handler, "Ensaio")

	// Band members editing the same setlist at once must not overwrite
	// each other's change.
	const editors = 8
	var wg sync.WaitGroup
	for i := 0; i < editors; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := doJSON(t, handler, "POST", fmt.Sprintf("/api/setlists/%d/blocks/0/items", id),
				map[string]string{"pauseLabel": fmt.Sprintf("Pausa %d", n)})
			if rec.Code != http.StatusOK {
				t.Errorf("concurrent add: %d %s", rec.Code, rec.Body.String())
			}
		}(i)
	}
	wg.Wait()

	rec := doJSON(t, handler, "GET", fmt.Sprintf("/api/setlists/%d", id), nil)
	var s setlist.Setlist
	decodeBody(t, rec, &s)
	if len(s.Blocks[0].Items) != editors {
		t.Errorf("items = %d, want %d: a concurrent edit was lost", len(s.Blocks[0].Items), editors)
	}
}

func TestChartPreviewTransposes(t *testing.T) {
	ss, handler := newTestServer(t)

	ref, err := ss.charts.Create("|Am  F\n Letra aqui\n")
	if err != nil {
		t.Fatalf("create chart: %v", err)
	}

	rec := doJSON(t, handler, "GET", "/api/charts/"+ref+"/preview?from=Am&to=Bm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "Bm  G\nLetra aqui\n" {
		t.Errorf("preview body = %q", rec.Body.String())
	}

	rec = doJSON(t, handler, "GET", "/api/charts/"+ref+"/preview?from=Am&to=X", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad target key should 400, got %d", rec.Code)
	}
}

func TestPerformanceFlow(t *testing.T) {
	_, handler := newTestServer(t)
	id := createTestSetlist(t, handler, "Show")

	rec := doJSON(t, handler, "POST", "/api/performance/start", map[string]int{"setlistId": id})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, "POST", "/api/performance/cursor", map[string]int{"blockIndex": 0, "itemIndex": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("cursor: %d", rec.Code)
	}

	rec = doJSON(t, handler, "GET", "/api/performance/state", nil)
	var state struct {
		SetlistID int  `json:"setlistId"`
		ItemIndex int  `json:"itemIndex"`
		Active    bool `json:"active"`
	}
	decodeBody(t, rec, &state)
	if !state.Active || state.SetlistID != id || state.ItemIndex != 2 {
		t.Errorf("state = %+v", state)
	}

	doJSON(t, handler, "POST", "/api/performance/stop", nil)
	rec = doJSON(t, handler, "GET", "/api/performance/state", nil)
	decodeBody(t, rec, &state)
	if state.Active {
		t.Error("state should be inactive after stop")
	}
}

func TestStartPerformanceUnknownSetlist(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, "POST", "/api/performance/start", map[string]int{"setlistId": 999})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown setlist should 404, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	var health HealthStatus
	decodeBody(t, rec, &health)
	if health.Status != "healthy" {
		t.Errorf("status = %q", health.Status)
	}
}
