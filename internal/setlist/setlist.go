// Package setlist holds the editable performance plan: an ordered list of
// named blocks, each an ordered list of songs and pauses. The aggregate is
// an explicit value owned by the caller; editor operations address items
// by (block index, item index) pairs, and every structurally impossible
// request (out-of-bounds move, deleting the last block) is a no-op rather
// than an error.
package setlist

import (
	"encoding/json"
	"fmt"

	"bandstand/internal/musickey"
	"bandstand/pkg/models"
)

// Item is a sealed sum of Music and Pause.
type Item interface {
	isItem()
}

// Music is a song entry. CurrentKey starts equal to OriginalKey and is the
// only field a retune changes.
type Music struct {
	Title              string       `json:"title"`
	Artist             string       `json:"artist"`
	OriginalKey        musickey.Key `json:"originalKey"`
	CurrentKey         musickey.Key `json:"currentKey"`
	BPM                int          `json:"bpm"`
	ChartRef           string       `json:"chartRef,omitempty"`
	SimplifiedChartRef string       `json:"simplifiedChartRef,omitempty"`
	UseSimplified      bool         `json:"useSimplified"`
	InlineText         string       `json:"inlineText,omitempty"` // fallback body when no chart ref
}

// Pause is a break between songs.
type Pause struct {
	Label string `json:"label"`
}

func (Music) isItem() {}
func (Pause) isItem() {}

// ActiveChartRef returns the chart handle the performer should see,
// honoring the simplified-chart toggle. Empty when the item only carries
// inline text.
func (m Music) ActiveChartRef() string {
	if m.UseSimplified && m.SimplifiedChartRef != "" {
		return m.SimplifiedChartRef
	}
	return m.ChartRef
}

// Block is a named, ordered run of items (a set, an acoustic segment...).
type Block struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Setlist is the whole performance plan. It always contains at least one
// block; New establishes the invariant and DeleteBlock maintains it.
type Setlist struct {
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
}

// New creates a setlist with a single empty opening block.
func New(name string) *Setlist {
	return &Setlist{
		Name:   name,
		Blocks: []Block{{Name: "Bloco 1", Items: []Item{}}},
	}
}

// AddBlock appends an empty block.
func (s *Setlist) AddBlock(name string) {
	s.Blocks = append(s.Blocks, Block{Name: name, Items: []Item{}})
}

// RenameBlock sets a block's name; out-of-range indices are ignored.
func (s *Setlist) RenameBlock(blockIdx int, name string) {
	if blockIdx < 0 || blockIdx >= len(s.Blocks) {
		return
	}
	s.Blocks[blockIdx].Name = name
}

// MoveBlock swaps a block with its neighbor in the given direction
// (-1 up, +1 down). No-op when the target falls outside the list.
func (s *Setlist) MoveBlock(blockIdx, direction int) {
	target := blockIdx + direction
	if blockIdx < 0 || blockIdx >= len(s.Blocks) || target < 0 || target >= len(s.Blocks) {
		return
	}
	s.Blocks[blockIdx], s.Blocks[target] = s.Blocks[target], s.Blocks[blockIdx]
}

// DeleteBlock removes a block, refusing (no-op) when it is the last one.
func (s *Setlist) DeleteBlock(blockIdx int) {
	if blockIdx < 0 || blockIdx >= len(s.Blocks) || len(s.Blocks) == 1 {
		return
	}
	s.Blocks = append(s.Blocks[:blockIdx], s.Blocks[blockIdx+1:]...)
}

// MoveItem swaps an item with its neighbor in the given direction inside
// its block. No-op when either index is out of bounds.
func (s *Setlist) MoveItem(blockIdx, itemIdx, direction int) {
	if blockIdx < 0 || blockIdx >= len(s.Blocks) {
		return
	}
	items := s.Blocks[blockIdx].Items
	target := itemIdx + direction
	if itemIdx < 0 || itemIdx >= len(items) || target < 0 || target >= len(items) {
		return
	}
	items[itemIdx], items[target] = items[target], items[itemIdx]
}

// DeleteItem removes an item from a block.
func (s *Setlist) DeleteItem(blockIdx, itemIdx int) {
	if blockIdx < 0 || blockIdx >= len(s.Blocks) {
		return
	}
	items := s.Blocks[blockIdx].Items
	if itemIdx < 0 || itemIdx >= len(items) {
		return
	}
	s.Blocks[blockIdx].Items = append(items[:itemIdx], items[itemIdx+1:]...)
}

// AddMusicFromCatalog appends a song from the catalog. The item starts in
// the song's original key with the full (non-simplified) chart.
func (s *Setlist) AddMusicFromCatalog(blockIdx int, song models.CatalogSong) {
	if blockIdx < 0 || blockIdx >= len(s.Blocks) {
		return
	}
	tom := musickey.Parse(song.OriginalKey)
	s.Blocks[blockIdx].Items = append(s.Blocks[blockIdx].Items, Music{
		Title:              song.Title,
		Artist:             song.Artist,
		OriginalKey:        tom,
		CurrentKey:         tom,
		BPM:                song.BPM,
		ChartRef:           song.ChartRef,
		SimplifiedChartRef: song.SimplifiedChartRef,
		UseSimplified:      false,
	})
}

// AddPause appends a pause with the given label.
func (s *Setlist) AddPause(blockIdx int, label string) {
	if blockIdx < 0 || blockIdx >= len(s.Blocks) {
		return
	}
	s.Blocks[blockIdx].Items = append(s.Blocks[blockIdx].Items, Pause{Label: label})
}

// Retune changes a music item's current key. Pauses and out-of-bounds
// cursors are ignored.
func (s *Setlist) Retune(blockIdx, itemIdx int, target musickey.Key) {
	m, ok := s.ItemAt(blockIdx, itemIdx)
	if !ok {
		return
	}
	music, ok := m.(Music)
	if !ok {
		return
	}
	music.CurrentKey = target
	s.Blocks[blockIdx].Items[itemIdx] = music
}

// SetUseSimplified toggles the simplified-chart flag on a music item.
func (s *Setlist) SetUseSimplified(blockIdx, itemIdx int, use bool) {
	m, ok := s.ItemAt(blockIdx, itemIdx)
	if !ok {
		return
	}
	music, ok := m.(Music)
	if !ok {
		return
	}
	music.UseSimplified = use
	s.Blocks[blockIdx].Items[itemIdx] = music
}

// ItemAt returns the item at the cursor, reporting whether the cursor is
// valid.
func (s *Setlist) ItemAt(blockIdx, itemIdx int) (Item, bool) {
	if blockIdx < 0 || blockIdx >= len(s.Blocks) {
		return nil, false
	}
	items := s.Blocks[blockIdx].Items
	if itemIdx < 0 || itemIdx >= len(items) {
		return nil, false
	}
	return items[itemIdx], true
}

// itemEnvelope is the tagged wire form of an Item.
type itemEnvelope struct {
	Type string `json:"type"`

	// music fields
	Title              string        `json:"title,omitempty"`
	Artist             string        `json:"artist,omitempty"`
	OriginalKey        *musickey.Key `json:"originalKey,omitempty"`
	CurrentKey         *musickey.Key `json:"currentKey,omitempty"`
	BPM                int           `json:"bpm,omitempty"`
	ChartRef           string        `json:"chartRef,omitempty"`
	SimplifiedChartRef string        `json:"simplifiedChartRef,omitempty"`
	UseSimplified      bool          `json:"useSimplified,omitempty"`
	InlineText         string        `json:"inlineText,omitempty"`

	// pause fields
	Label string `json:"label,omitempty"`
}

// MarshalItem encodes an item with its type tag.
func MarshalItem(item Item) ([]byte, error) {
	return json.Marshal(envelopeFor(item))
}

func envelopeFor(item Item) itemEnvelope {
	switch it := item.(type) {
	case Music:
		ok, ck := it.OriginalKey, it.CurrentKey
		return itemEnvelope{
			Type:               "music",
			Title:              it.Title,
			Artist:             it.Artist,
			OriginalKey:        &ok,
			CurrentKey:         &ck,
			BPM:                it.BPM,
			ChartRef:           it.ChartRef,
			SimplifiedChartRef: it.SimplifiedChartRef,
			UseSimplified:      it.UseSimplified,
			InlineText:         it.InlineText,
		}
	case Pause:
		return itemEnvelope{Type: "pause", Label: it.Label}
	default:
		return itemEnvelope{}
	}
}

func (e itemEnvelope) item() (Item, error) {
	switch e.Type {
	case "music":
		m := Music{
			Title:              e.Title,
			Artist:             e.Artist,
			BPM:                e.BPM,
			ChartRef:           e.ChartRef,
			SimplifiedChartRef: e.SimplifiedChartRef,
			UseSimplified:      e.UseSimplified,
			InlineText:         e.InlineText,
		}
		if e.OriginalKey != nil {
			m.OriginalKey = *e.OriginalKey
		}
		if e.CurrentKey != nil {
			m.CurrentKey = *e.CurrentKey
		}
		return m, nil
	case "pause":
		return Pause{Label: e.Label}, nil
	default:
		return nil, fmt.Errorf("unknown item type %q", e.Type)
	}
}

// MarshalJSON encodes the block with tagged items.
func (b Block) MarshalJSON() ([]byte, error) {
	envelopes := make([]itemEnvelope, 0, len(b.Items))
	for _, item := range b.Items {
		envelopes = append(envelopes, envelopeFor(item))
	}
	return json.Marshal(struct {
		Name  string         `json:"name"`
		Items []itemEnvelope `json:"items"`
	}{Name: b.Name, Items: envelopes})
}

// UnmarshalJSON decodes tagged items back into the sum type.
func (b *Block) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name  string         `json:"name"`
		Items []itemEnvelope `json:"items"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	b.Name = wire.Name
	b.Items = make([]Item, 0, len(wire.Items))
	for _, e := range wire.Items {
		item, err := e.item()
		if err != nil {
			return err
		}
		b.Items = append(b.Items, item)
	}
	return nil
}
