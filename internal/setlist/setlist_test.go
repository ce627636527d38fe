package setlist

import (
	"encoding/json"
	"testing"

	"bandstand/internal/musickey"
	"bandstand/pkg/models"
)

func sampleSong() models.CatalogSong {
	return models.CatalogSong{
		Title:       "Evidências",
		Artist:      "Chitãozinho & Xororó",
		OriginalKey: "G",
		BPM:         72,
		ChartRef:    "ref-1",
	}
}

func TestNewHasOneBlock(t *testing.T) {
	s := New("Ensaio")
	if len(s.Blocks) != 1 {
		t.Fatalf("new setlist should have one block, got %d", len(s.Blocks))
	}
}

func TestAddMusicFromCatalog(t *testing.T) {
	s := New("Ensaio")
	s.AddMusicFromCatalog(0, sampleSong())

	item, ok := s.ItemAt(0, 0)
	if !ok {
		t.Fatal("expected item at (0,0)")
	}
	music, ok := item.(Music)
	if !ok {
		t.Fatalf("expected Music, got %T", item)
	}
	if music.CurrentKey != music.OriginalKey {
		t.Errorf("current key should start equal to original: %v vs %v", music.CurrentKey, music.OriginalKey)
	}
	if music.OriginalKey.Root != "G" {
		t.Errorf("original key = %v, want G", music.OriginalKey)
	}
	if music.UseSimplified {
		t.Error("useSimplified should start false")
	}
}

func TestRetuneChangesOnlyCurrentKey(t *testing.T) {
	s := New("Ensaio")
	s.AddMusicFromCatalog(0, sampleSong())

	s.Retune(0, 0, musickey.Parse("A"))

	item, _ := s.ItemAt(0, 0)
	music := item.(Music)
	if music.CurrentKey.Root != "A" {
		t.Errorf("current key = %v, want A", music.CurrentKey)
	}
	if music.OriginalKey.Root != "G" {
		t.Errorf("original key must not change, got %v", music.OriginalKey)
	}
}

func TestRetunePauseIsNoOp(t *testing.T) {
	s := New("Ensaio")
	s.AddPause(0, "Intervalo")
	s.Retune(0, 0, musickey.Parse("A"))

	item, _ := s.ItemAt(0, 0)
	if _, ok := item.(Pause); !ok {
		t.Fatalf("pause should survive retune, got %T", item)
	}
}

func TestMoveItemSwapsNeighbors(t *testing.T) {
	s := New("Ensaio")
	s.AddMusicFromCatalog(0, sampleSong())
	s.AddPause(0, "Intervalo")

	s.MoveItem(0, 0, +1)

	if _, ok := s.Blocks[0].Items[0].(Pause); !ok {
		t.Error("expected pause first after move down")
	}
	if _, ok := s.Blocks[0].Items[1].(Music); !ok {
		t.Error("expected music second after move down")
	}
}

func TestMoveItemOutOfBoundsIsNoOp(t *testing.T) {
	s := New("Ensaio")
	s.AddMusicFromCatalog(0, sampleSong())

	s.MoveItem(0, 0, -1) // would move above the top
	s.MoveItem(0, 0, +1) // would move below the end
	s.MoveItem(5, 0, +1) // bad block

	if len(s.Blocks[0].Items) != 1 {
		t.Fatalf("items changed: %d", len(s.Blocks[0].Items))
	}
}

func TestDeleteItem(t *testing.T) {
	s := New("Ensaio")
	s.AddMusicFromCatalog(0, sampleSong())
	s.AddPause(0, "Intervalo")

	s.DeleteItem(0, 0)

	if len(s.Blocks[0].Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(s.Blocks[0].Items))
	}
	if _, ok := s.Blocks[0].Items[0].(Pause); !ok {
		t.Error("remaining item should be the pause")
	}
}

func TestDeleteLastBlockIsNoOp(t *testing.T) {
	s := New("Ensaio")
	s.DeleteBlock(0)
	if len(s.Blocks) != 1 {
		t.Fatalf("deleting the only block must be refused, have %d blocks", len(s.Blocks))
	}

	s.AddBlock("Bis")
	s.DeleteBlock(1)
	if len(s.Blocks) != 1 {
		t.Fatalf("expected 1 block after delete, got %d", len(s.Blocks))
	}
}

func TestMoveBlock(t *testing.T) {
	s := New("Ensaio")
	s.AddBlock("Acústico")
	s.AddBlock("Bis")

	s.MoveBlock(2, -1)
	if s.Blocks[1].Name != "Bis" || s.Blocks[2].Name != "Acústico" {
		t.Errorf("blocks after move: %s, %s", s.Blocks[1].Name, s.Blocks[2].Name)
	}

	s.MoveBlock(0, -1) // no-op at the top
	if s.Blocks[0].Name != "Bloco 1" {
		t.Errorf("top block moved unexpectedly: %s", s.Blocks[0].Name)
	}
}

func TestSetUseSimplified(t *testing.T) {
	song := sampleSong()
	song.SimplifiedChartRef = "ref-simple"
	s := New("Ensaio")
	s.AddMusicFromCatalog(0, song)

	s.SetUseSimplified(0, 0, true)

	item, _ := s.ItemAt(0, 0)
	music := item.(Music)
	if !music.UseSimplified {
		t.Fatal("useSimplified should be set")
	}
	if ref := music.ActiveChartRef(); ref != "ref-simple" {
		t.Errorf("active ref = %q, want ref-simple", ref)
	}

	s.SetUseSimplified(0, 0, false)
	item, _ = s.ItemAt(0, 0)
	if ref := item.(Music).ActiveChartRef(); ref != "ref-1" {
		t.Errorf("active ref = %q, want ref-1", ref)
	}
}

func TestBlockJSONRoundTrip(t *testing.T) {
	s := New("Ensaio")
	s.AddMusicFromCatalog(0, sampleSong())
	s.AddPause(0, "Intervalo 15min")

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Setlist
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(back.Blocks) != 1 || len(back.Blocks[0].Items) != 2 {
		t.Fatalf("unexpected shape after round trip: %+v", back)
	}
	music, ok := back.Blocks[0].Items[0].(Music)
	if !ok {
		t.Fatalf("first item should decode as Music, got %T", back.Blocks[0].Items[0])
	}
	if music.Title != "Evidências" || music.OriginalKey.Root != "G" {
		t.Errorf("music lost fields: %+v", music)
	}
	pause, ok := back.Blocks[0].Items[1].(Pause)
	if !ok {
		t.Fatalf("second item should decode as Pause, got %T", back.Blocks[0].Items[1])
	}
	if pause.Label != "Intervalo 15min" {
		t.Errorf("pause label = %q", pause.Label)
	}
}
