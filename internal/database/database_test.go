package database

import (
	"path/filepath"
	"testing"

	"bandstand/internal/musickey"
	"bandstand/internal/setlist"
	"bandstand/pkg/models"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertSongInsertThenUpdate(t *testing.T) {
	db := newTestDatabase(t)

	song := models.CatalogSong{
		Title:       "Evidências",
		Artist:      "Chitãozinho & Xororó",
		OriginalKey: "G",
		BPM:         72,
		ChartRef:    "ref-1",
	}

	id, err := db.UpsertSong(song)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero ID")
	}

	// Same title+artist without a source path updates in place.
	song.BPM = 80
	id2, err := db.UpsertSong(song)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if id2 != id {
		t.Fatalf("re-import created a new row: %d vs %d", id2, id)
	}

	got, err := db.GetSongByID(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BPM != 80 {
		t.Errorf("bpm = %d, want 80", got.BPM)
	}
}

func TestUpsertSongMatchesOnSourcePath(t *testing.T) {
	db := newTestDatabase(t)

	song := models.CatalogSong{
		Title:      "Gravação",
		SourcePath: "/recordings/take1.mp3",
		Duration:   213,
	}
	id, err := db.UpsertSong(song)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	song.Title = "Gravação (renomeada)"
	id2, err := db.UpsertSong(song)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if id2 != id {
		t.Fatalf("same source path should update, got new ID %d", id2)
	}

	exists, err := db.SongExistsBySource("/recordings/take1.mp3")
	if err != nil || !exists {
		t.Fatalf("exists = %v, err = %v", exists, err)
	}

	if err := db.RemoveSongBySource("/recordings/take1.mp3"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	exists, _ = db.SongExistsBySource("/recordings/take1.mp3")
	if exists {
		t.Error("song should be gone after removal")
	}
}

func TestSearchSongs(t *testing.T) {
	db := newTestDatabase(t)

	songs := []models.CatalogSong{
		{Title: "Evidências", Artist: "Chitãozinho & Xororó", OriginalKey: "G"},
		{Title: "Anunciação", Artist: "Alceu Valença", OriginalKey: "D"},
	}
	for _, s := range songs {
		if _, err := db.UpsertSong(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	results, err := db.SearchSongs("valença")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Anunciação" {
		t.Errorf("search results = %+v", results)
	}

	all, err := db.GetAllSongs()
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("catalog size = %d, want 2", len(all))
	}
}

func TestSetlistSaveLoadRoundTrip(t *testing.T) {
	db := newTestDatabase(t)

	id, err := db.CreateSetlist("Show de sábado")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	s := setlist.New("Show de sábado")
	s.AddMusicFromCatalog(0, models.CatalogSong{
		Title: "Evidências", Artist: "Chitãozinho & Xororó",
		OriginalKey: "G", BPM: 72, ChartRef: "ref-1", SimplifiedChartRef: "ref-1s",
	})
	s.Retune(0, 0, musickey.Parse("A"))
	s.AddPause(0, "Troca de violão")
	s.AddBlock("Bis")
	s.AddMusicFromCatalog(1, models.CatalogSong{Title: "Anunciação", OriginalKey: "D", ChartRef: "ref-2"})

	if err := db.SaveSetlist(id, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	back, err := db.LoadSetlist(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if back.Name != "Show de sábado" {
		t.Errorf("name = %q", back.Name)
	}
	if len(back.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(back.Blocks))
	}
	if len(back.Blocks[0].Items) != 2 || len(back.Blocks[1].Items) != 1 {
		t.Fatalf("item counts wrong: %d and %d", len(back.Blocks[0].Items), len(back.Blocks[1].Items))
	}

	music, ok := back.Blocks[0].Items[0].(setlist.Music)
	if !ok {
		t.Fatalf("first item should be Music, got %T", back.Blocks[0].Items[0])
	}
	if music.OriginalKey.Root != "G" || music.CurrentKey.Root != "A" {
		t.Errorf("keys lost on round trip: original %v, current %v", music.OriginalKey, music.CurrentKey)
	}
	if music.SimplifiedChartRef != "ref-1s" {
		t.Errorf("simplified ref = %q", music.SimplifiedChartRef)
	}

	pause, ok := back.Blocks[0].Items[1].(setlist.Pause)
	if !ok || pause.Label != "Troca de violão" {
		t.Errorf("pause lost: %+v", back.Blocks[0].Items[1])
	}
}

func TestInlineTextSurvivesRoundTrip(t *testing.T) {
	db := newTestDatabase(t)

	id, err := db.CreateSetlist("Ensaio")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A song without a chart ref carries its chart body on the item.
	s := setlist.New("Ensaio")
	s.AddMusicFromCatalog(0, models.CatalogSong{Title: "Sem Cifra", OriginalKey: "C"})
	m := s.Blocks[0].Items[0].(setlist.Music)
	m.InlineText = "|C\n la la\n"
	s.Blocks[0].Items[0] = m

	if err := db.SaveSetlist(id, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, err := db.LoadSetlist(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	music, ok := back.Blocks[0].Items[0].(setlist.Music)
	if !ok {
		t.Fatalf("first item should be Music, got %T", back.Blocks[0].Items[0])
	}
	if music.InlineText != "|C\n la la\n" {
		t.Errorf("inline text = %q, want the saved chart body", music.InlineText)
	}
}

func TestSaveSetlistReplacesPreviousItems(t *testing.T) {
	db := newTestDatabase(t)

	id, _ := db.CreateSetlist("Ensaio")
	s := setlist.New("Ensaio")
	s.AddPause(0, "um")
	s.AddPause(0, "dois")
	if err := db.SaveSetlist(id, s); err != nil {
		t.Fatalf("first save: %v", err)
	}

	s.DeleteItem(0, 1)
	if err := db.SaveSetlist(id, s); err != nil {
		t.Fatalf("second save: %v", err)
	}

	back, err := db.LoadSetlist(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(back.Blocks[0].Items) != 1 {
		t.Fatalf("save should replace items wholesale, got %d", len(back.Blocks[0].Items))
	}
}

func TestLoadEmptySetlistKeepsFirstBlock(t *testing.T) {
	db := newTestDatabase(t)

	id, _ := db.CreateSetlist("Vazio")
	back, err := db.LoadSetlist(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(back.Blocks) != 1 || back.Blocks[0].Name != "Bloco 1" {
		t.Errorf("empty setlist should load with its first block, got %+v", back.Blocks)
	}
}

func TestListRenameDeleteSetlists(t *testing.T) {
	db := newTestDatabase(t)

	id, _ := db.CreateSetlist("Original")
	if err := db.RenameSetlist(id, "Renomeado"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	lists, err := db.ListSetlists()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lists) != 1 || lists[0].Name != "Renomeado" {
		t.Errorf("lists = %+v", lists)
	}

	if err := db.DeleteSetlist(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.LoadSetlist(id); err == nil {
		t.Error("loading a deleted setlist should fail")
	}
}

func TestCheckHealth(t *testing.T) {
	db := newTestDatabase(t)
	if err := db.CheckHealth(); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
}
