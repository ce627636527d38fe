package models

import "time"

// CatalogSong represents one entry of the band's song bank. OriginalKey
// holds the key ("tom") the band plays the song in by default; ChartRef
// and SimplifiedChartRef are opaque handles into the chart store.
type CatalogSong struct {
	ID                 int    `json:"id"`
	Title              string `json:"title"`
	Artist             string `json:"artist"`
	OriginalKey        string `json:"originalKey"`
	BPM                int    `json:"bpm"`
	ChartRef           string `json:"chartRef,omitempty"`
	SimplifiedChartRef string `json:"simplifiedChartRef,omitempty"`
	Duration           int    `json:"duration"` // in seconds, 0 when unknown
	SourcePath         string `json:"-"`        // recording the entry was imported from, if any
}

// Label renders the song the way the picker shows it: "Title – Artist (Tom)".
func (s CatalogSong) Label() string {
	label := s.Title
	if s.Artist != "" {
		label += " – " + s.Artist
	}
	if s.OriginalKey != "" {
		label += " (" + s.OriginalKey + ")"
	}
	return label
}

// SetlistInfo is the listing view of a stored setlist.
type SetlistInfo struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
