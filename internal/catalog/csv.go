// Package catalog fills the song catalog from two sources: the band's
// spreadsheet exported as CSV, and a directory of rehearsal recordings.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bandstand/pkg/models"

	"github.com/sirupsen/logrus"
)

// Column aliases accepted in the CSV header. The band's sheet has gone
// through a few naming generations, so each field matches several spellings.
var (
	titleAliases      = []string{"Título", "Titulo", "title", "Title", "song", "SongTitle"}
	artistAliases     = []string{"Artista", "Artist", "artist"}
	keyAliases        = []string{"Tom_Original", "TomOriginal", "Tom", "Key", "key"}
	bpmAliases        = []string{"BPM", "bpm"}
	chartAliases      = []string{"Cifra", "ChartRef", "chart_ref"}
	simplifiedAliases = []string{"Cifra_Simplificada", "SimplifiedChartRef", "simplified_chart_ref"}
)

// ImportResult summarizes a CSV import run.
type ImportResult struct {
	Imported  int `json:"imported"`
	Discarded int `json:"discarded"`
}

// columnIndex resolves the first alias present in the header, or -1.
func columnIndex(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, col := range header {
			if strings.TrimSpace(col) == alias {
				return i
			}
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// ParseCSV reads a catalog sheet and returns the songs it describes.
// Rows without a title are counted as discarded rather than failing the
// whole import. A missing title column is an error; every other column
// is optional.
func ParseCSV(r io.Reader) ([]models.CatalogSong, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	titleIdx := columnIndex(header, titleAliases)
	if titleIdx < 0 {
		return nil, 0, fmt.Errorf("no title column found in header %v", header)
	}
	artistIdx := columnIndex(header, artistAliases)
	keyIdx := columnIndex(header, keyAliases)
	bpmIdx := columnIndex(header, bpmAliases)
	chartIdx := columnIndex(header, chartAliases)
	simplifiedIdx := columnIndex(header, simplifiedAliases)

	var songs []models.CatalogSong
	discarded := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read CSV row: %w", err)
		}

		title := field(record, titleIdx)
		if title == "" {
			discarded++
			continue
		}

		bpm := 0
		if raw := field(record, bpmIdx); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				bpm = n
			}
		}

		songs = append(songs, models.CatalogSong{
			Title:              title,
			Artist:             field(record, artistIdx),
			OriginalKey:        field(record, keyIdx),
			BPM:                bpm,
			ChartRef:           field(record, chartIdx),
			SimplifiedChartRef: field(record, simplifiedIdx),
		})
	}

	return songs, discarded, nil
}

// songStore is the slice of the database the importers need.
type songStore interface {
	UpsertSong(song models.CatalogSong) (int, error)
}

// ImportCSV parses a sheet and upserts every song into the catalog.
func ImportCSV(store songStore, r io.Reader, logger *logrus.Logger) (ImportResult, error) {
	songs, discarded, err := ParseCSV(r)
	if err != nil {
		return ImportResult{}, err
	}

	imported := 0
	for _, song := range songs {
		if _, err := store.UpsertSong(song); err != nil {
			logger.WithError(err).WithField("title", song.Title).Error("Failed to import song from CSV")
			continue
		}
		imported++
	}

	logger.WithFields(logrus.Fields{
		"imported":  imported,
		"discarded": discarded,
	}).Info("CSV import finished")

	return ImportResult{Imported: imported, Discarded: discarded}, nil
}

// ImportCSVFromURL fetches a published sheet (e.g. a raw GitHub URL) and
// imports it.
func ImportCSVFromURL(store songStore, url string, logger *logrus.Logger) (ImportResult, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to fetch CSV: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ImportResult{}, fmt.Errorf("CSV fetch returned status %d", resp.StatusCode)
	}

	return ImportCSV(store, resp.Body, logger)
}
