package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"bandstand/pkg/models"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Importer scans rehearsal recordings and feeds them into the catalog.
// Title and artist come from the audio tags, duration from the stream
// itself; durations let the band estimate set length when planning.
type Importer struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewImporter creates a recordings importer for the given extensions
// (".mp3", ".flac", ".wav", ".m4a").
func NewImporter(supportedFormats []string) *Importer {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Importer{
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// IsRecordingFile checks if a file has one of the supported audio extensions.
func (im *Importer) IsRecordingFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range im.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ExtractSong builds a catalog entry from one recording. Tag failures are
// not fatal: the filename stands in for the title and the artist is left
// blank so the row can be completed from the sheet later.
func (im *Importer) ExtractSong(path string) (models.CatalogSong, error) {
	startTime := time.Now()

	file, err := os.Open(path)
	if err != nil {
		im.logger.WithError(err).WithField("path", path).Error("Failed to open recording")
		return models.CatalogSong{}, err
	}
	defer file.Close()

	duration, err := im.calculateDuration(path)
	if err != nil {
		im.logger.WithError(err).WithField("path", path).Warn("Failed to calculate duration, setting to 0")
		duration = 0
	}

	song := models.CatalogSong{
		Duration:   duration,
		SourcePath: path,
	}

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		song.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		im.logger.WithError(err).WithField("path", path).Warn("Failed to read tags, using filename as title")
		return song, nil
	}

	song.Title = metadata.Title()
	if song.Title == "" {
		song.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	song.Artist = metadata.Artist()

	im.logger.WithFields(logrus.Fields{
		"path":           path,
		"title":          song.Title,
		"artist":         song.Artist,
		"duration":       duration,
		"processingTime": time.Since(startTime),
	}).Debug("Extracted recording metadata")

	return song, nil
}

// recordingStore is the slice of the database the scanner needs.
type recordingStore interface {
	UpsertSong(song models.CatalogSong) (int, error)
	SongExistsBySource(sourcePath string) (bool, error)
	RemoveSongBySource(sourcePath string) error
}

// ScanDirectory walks the recordings directory and upserts a catalog row
// per audio file, fanning the extraction out over a small worker pool.
// Returns the number of recordings imported.
func (im *Importer) ScanDirectory(root string, store recordingStore) (int, error) {
	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			im.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable path")
			return nil
		}
		if !info.IsDir() && im.IsRecordingFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk recordings directory: %w", err)
	}

	const workers = 4
	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	imported := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				song, err := im.ExtractSong(path)
				if err != nil {
					continue
				}
				if _, err := store.UpsertSong(song); err != nil {
					im.logger.WithError(err).WithField("path", path).Error("Failed to upsert recording")
					continue
				}
				mu.Lock()
				imported++
				mu.Unlock()
			}
		}()
	}

	for _, path := range paths {
		jobs <- path
	}
	close(jobs)
	wg.Wait()

	im.logger.WithFields(logrus.Fields{
		"root":     root,
		"imported": imported,
	}).Info("Recordings scan finished")

	return imported, nil
}

// HandleRemoved drops the catalog row for a recording that disappeared
// from disk (driven by the file watcher).
func (im *Importer) HandleRemoved(path string, store recordingStore) {
	exists, err := store.SongExistsBySource(path)
	if err != nil || !exists {
		return
	}
	if err := store.RemoveSongBySource(path); err == nil {
		im.logger.WithField("path", path).Info("Removed recording from catalog")
	}
}

// calculateDuration returns the recording length in seconds.
func (im *Importer) calculateDuration(path string) (int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return im.durationMP3(path)
	case ".flac":
		return im.durationFLAC(path)
	case ".wav":
		return im.durationWAV(path)
	case ".m4a":
		return im.durationM4A(path)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
}

// MP3 duration by frame decoding; falls back to a bitrate estimate when no
// frame decodes at all.
func (im *Importer) durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return im.estimateFromFileSize(path, 192000)
			}
			break
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds()), nil
}

// FLAC duration via the STREAMINFO block.
func (im *Importer) durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		secs := float64(si.NSamples) / float64(si.SampleRate)
		return int(secs + 0.5), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// WAV duration approximated from the header and file size.
func (im *Importer) durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerSampleFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerSampleFrame <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	sampleFrames := pcmBytes / bytesPerSampleFrame
	secs := float64(sampleFrames) / float64(dec.SampleRate)
	return int(secs + 0.5), nil
}

// M4A duration from the mvhd atom: a minimal manual scan keeps the MP4
// dependency out.
func (im *Importer) durationM4A(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	for {
		head := make([]byte, 8)
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		atom := string(head[4:8])
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size")
		}
		if atom == "moov" {
			limit := int64(size) - 8
			for read := int64(0); read < limit; {
				subHead := make([]byte, 8)
				if _, err := io.ReadFull(f, subHead); err != nil {
					return 0, err
				}
				subSize := binary.BigEndian.Uint32(subHead[0:4])
				subAtom := string(subHead[4:8])
				if subAtom == "mvhd" {
					version := make([]byte, 1)
					if _, err := io.ReadFull(f, version); err != nil {
						return 0, err
					}
					var skip int64
					if version[0] == 1 {
						skip = 3 + 8 + 8
					} else {
						skip = 3 + 4 + 4
					}
					if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
						return 0, err
					}
					tsBuf := make([]byte, 4)
					if _, err := io.ReadFull(f, tsBuf); err != nil {
						return 0, err
					}
					timescale := binary.BigEndian.Uint32(tsBuf)
					durBuf := make([]byte, 4)
					if _, err := io.ReadFull(f, durBuf); err != nil {
						return 0, err
					}
					durUnits := binary.BigEndian.Uint32(durBuf)
					if timescale == 0 {
						return 0, fmt.Errorf("invalid timescale")
					}
					secs := float64(durUnits) / float64(timescale)
					return int(secs + 0.5), nil
				}
				if subSize < 8 {
					return 0, fmt.Errorf("invalid sub-atom size")
				}
				if _, err := f.Seek(int64(subSize)-8, io.SeekCurrent); err != nil {
					return 0, err
				}
				read += int64(subSize)
			}
			break
		}
		if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("mvhd atom not found")
}

// estimateFromFileSize provides last-resort estimation if parsing fails.
func (im *Importer) estimateFromFileSize(path string, bitrate int) (int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return int((st.Size() * 8) / int64(bitrate)), nil
}
