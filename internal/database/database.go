package database

import (
	"database/sql"
	"fmt"
	"time"

	"bandstand/internal/musickey"
	"bandstand/internal/setlist"
	"bandstand/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database wraps a *sql.DB providing higher-level helper methods for the
// application's persistent store: the song catalog and the stored
// setlists. It is safe for concurrent use because the underlying *sql.DB
// is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for the hot catalog and setlist paths
	insertSongStmt   *sql.Stmt
	updateSongStmt   *sql.Stmt
	getSongByIDStmt  *sql.Stmt
	songBySourceStmt *sql.Stmt
	removeSourceStmt *sql.Stmt
	searchSongsStmt  *sql.Stmt
	insertItemStmt   *sql.Stmt
	selectItemsStmt  *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. It also applies lightweight
// performance-oriented pragmas (WAL, cache sizing). Caller should Close() it
// when finished.
func NewDatabase(dbPath string) (*Database, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with fewer connections
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA auto_vacuum=INCREMENTAL;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist, then
// executes any migrations. This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	songsTable := `
	CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL DEFAULT '',
		original_key TEXT NOT NULL DEFAULT '',
		bpm INTEGER DEFAULT 0,
		chart_ref TEXT NOT NULL DEFAULT '',
		simplified_chart_ref TEXT NOT NULL DEFAULT '',
		duration INTEGER DEFAULT 0,
		source_path TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	setlistsTable := `
	CREATE TABLE IF NOT EXISTS setlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	// One row per setlist item; blocks are reconstructed by grouping on
	// (block_index, block_name) in ascending order.
	setlistItemsTable := `
	CREATE TABLE IF NOT EXISTS setlist_items (
		setlist_id INTEGER NOT NULL,
		block_index INTEGER NOT NULL,
		block_name TEXT NOT NULL,
		item_index INTEGER NOT NULL,
		item_type TEXT NOT NULL,
		song_title TEXT NOT NULL DEFAULT '',
		artist TEXT NOT NULL DEFAULT '',
		tom TEXT NOT NULL DEFAULT '',
		current_tom TEXT NOT NULL DEFAULT '',
		bpm INTEGER DEFAULT 0,
		chart_ref TEXT NOT NULL DEFAULT '',
		simplified_chart_ref TEXT NOT NULL DEFAULT '',
		use_simplified INTEGER NOT NULL DEFAULT 0,
		pause_label TEXT NOT NULL DEFAULT '',
		inline_text TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (setlist_id) REFERENCES setlists(id) ON DELETE CASCADE,
		PRIMARY KEY (setlist_id, block_index, item_index)
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title);",
		"CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist);",
		"CREATE INDEX IF NOT EXISTS idx_songs_search ON songs(title, artist);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_songs_source_path ON songs(source_path) WHERE source_path IS NOT NULL;",
		"CREATE INDEX IF NOT EXISTS idx_setlist_items_setlist ON setlist_items(setlist_id);",
		"CREATE INDEX IF NOT EXISTS idx_setlist_items_order ON setlist_items(setlist_id, block_index, item_index);",
	}

	tables := []string{songsTable, setlistsTable, setlistItemsTable}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return db.runMigrations()
}

// runMigrations performs incremental schema updates in-place. Each migration
// should be idempotent and safe to re-run; keep them lightweight.
func (db *Database) runMigrations() error {
	// Migration 1: add simplified_chart_ref to songs created before the
	// simplified-chart feature existed.
	var columnExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('songs')
		WHERE name = 'simplified_chart_ref'`).Scan(&columnExists)
	if err != nil {
		return err
	}
	if !columnExists {
		if _, err := db.conn.Exec("ALTER TABLE songs ADD COLUMN simplified_chart_ref TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
	}

	// Migration 2: add current_tom to setlist_items; older rows carried
	// only the original key, so the current key falls back to it on load.
	var currentTomExists bool
	err = db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('setlist_items')
		WHERE name = 'current_tom'`).Scan(&currentTomExists)
	if err != nil {
		return err
	}
	if !currentTomExists {
		if _, err := db.conn.Exec("ALTER TABLE setlist_items ADD COLUMN current_tom TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
		db.logger.Info("Added current_tom column to setlist_items table")
	}

	// Migration 3: add inline_text to setlist_items; songs without a chart
	// ref carry their chart body on the item itself.
	var inlineTextExists bool
	err = db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('setlist_items')
		WHERE name = 'inline_text'`).Scan(&inlineTextExists)
	if err != nil {
		return err
	}
	if !inlineTextExists {
		if _, err := db.conn.Exec("ALTER TABLE setlist_items ADD COLUMN inline_text TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
		db.logger.Info("Added inline_text column to setlist_items table")
	}

	return nil
}

// prepareStatements prepares commonly used SQL statements for better performance
func (db *Database) prepareStatements() error {
	var err error

	db.insertSongStmt, err = db.conn.Prepare(`
		INSERT INTO songs (title, artist, original_key, bpm, chart_ref, simplified_chart_ref, duration, source_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert song statement: %w", err)
	}

	db.updateSongStmt, err = db.conn.Prepare(`
		UPDATE songs SET title = ?, artist = ?, original_key = ?, bpm = ?, chart_ref = ?, simplified_chart_ref = ?, duration = ?
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare update song statement: %w", err)
	}

	db.getSongByIDStmt, err = db.conn.Prepare(`
		SELECT id, title, artist, original_key, bpm, chart_ref, simplified_chart_ref, duration, COALESCE(source_path, '')
		FROM songs WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get song by ID statement: %w", err)
	}

	db.songBySourceStmt, err = db.conn.Prepare(`
		SELECT COUNT(*) FROM songs WHERE source_path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare song by source statement: %w", err)
	}

	db.removeSourceStmt, err = db.conn.Prepare(`
		DELETE FROM songs WHERE source_path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare remove song statement: %w", err)
	}

	db.searchSongsStmt, err = db.conn.Prepare(`
		SELECT id, title, artist, original_key, bpm, chart_ref, simplified_chart_ref, duration, COALESCE(source_path, '')
		FROM songs
		WHERE title LIKE ? OR artist LIKE ?
		ORDER BY title, artist`)
	if err != nil {
		return fmt.Errorf("failed to prepare search songs statement: %w", err)
	}

	db.insertItemStmt, err = db.conn.Prepare(`
		INSERT INTO setlist_items (setlist_id, block_index, block_name, item_index, item_type, song_title, artist, tom, current_tom, bpm, chart_ref, simplified_chart_ref, use_simplified, pause_label, inline_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert item statement: %w", err)
	}

	db.selectItemsStmt, err = db.conn.Prepare(`
		SELECT block_index, block_name, item_index, item_type, song_title, artist, tom, current_tom, bpm, chart_ref, simplified_chart_ref, use_simplified, pause_label, inline_text
		FROM setlist_items
		WHERE setlist_id = ?
		ORDER BY block_index, item_index`)
	if err != nil {
		return fmt.Errorf("failed to prepare select items statement: %w", err)
	}

	return nil
}

// UpsertSong inserts a new catalog song or updates an existing one. Songs
// imported from recordings match on source_path; CSV rows (no source
// path) match on title+artist so re-importing the sheet refreshes rows
// instead of duplicating them. Returns the song's database ID.
func (db *Database) UpsertSong(song models.CatalogSong) (int, error) {
	var existingID int
	var err error
	if song.SourcePath != "" {
		err = db.conn.QueryRow("SELECT id FROM songs WHERE source_path = ?", song.SourcePath).Scan(&existingID)
	} else {
		err = db.conn.QueryRow("SELECT id FROM songs WHERE source_path IS NULL AND title = ? AND artist = ?",
			song.Title, song.Artist).Scan(&existingID)
	}
	if err == nil {
		_, err = db.updateSongStmt.Exec(
			song.Title, song.Artist, song.OriginalKey, song.BPM,
			song.ChartRef, song.SimplifiedChartRef, song.Duration,
			existingID)
		if err != nil {
			db.logger.WithError(err).WithField("song_id", existingID).Error("Failed to update existing song")
		}
		return existingID, err
	}

	var sourcePath interface{}
	if song.SourcePath != "" {
		sourcePath = song.SourcePath
	}

	result, err := db.insertSongStmt.Exec(
		song.Title, song.Artist, song.OriginalKey, song.BPM,
		song.ChartRef, song.SimplifiedChartRef, song.Duration, sourcePath)
	if err != nil {
		db.logger.WithError(err).WithField("title", song.Title).Error("Failed to insert new song")
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		db.logger.WithError(err).Error("Failed to get last insert ID")
		return 0, err
	}
	return int(id), nil
}

// GetAllSongs returns the whole catalog ordered by title/artist.
func (db *Database) GetAllSongs() ([]models.CatalogSong, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, artist, original_key, bpm, chart_ref, simplified_chart_ref, duration, COALESCE(source_path, '')
		FROM songs
		ORDER BY title, artist`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// GetSongByID returns a single catalog song by its ID.
func (db *Database) GetSongByID(id int) (*models.CatalogSong, error) {
	var song models.CatalogSong
	err := db.getSongByIDStmt.QueryRow(id).Scan(
		&song.ID, &song.Title, &song.Artist, &song.OriginalKey, &song.BPM,
		&song.ChartRef, &song.SimplifiedChartRef, &song.Duration, &song.SourcePath)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("song with ID %d not found", id)
		}
		db.logger.WithError(err).WithField("song_id", id).Error("Failed to get song by ID")
		return nil, err
	}
	return &song, nil
}

// SearchSongs performs a simple LIKE-based search over title and artist.
func (db *Database) SearchSongs(query string) ([]models.CatalogSong, error) {
	searchQuery := "%" + query + "%"
	rows, err := db.searchSongsStmt.Query(searchQuery, searchQuery)
	if err != nil {
		db.logger.WithError(err).WithField("query", query).Error("Failed to search songs")
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// SongExistsBySource returns true if a catalog song was imported from the
// given recording path.
func (db *Database) SongExistsBySource(sourcePath string) (bool, error) {
	var count int
	err := db.songBySourceStmt.QueryRow(sourcePath).Scan(&count)
	if err != nil {
		db.logger.WithError(err).WithField("source_path", sourcePath).Error("Failed to check if song exists")
		return false, err
	}
	return count > 0, nil
}

// RemoveSongBySource deletes the catalog row imported from a recording path.
func (db *Database) RemoveSongBySource(sourcePath string) error {
	_, err := db.removeSourceStmt.Exec(sourcePath)
	if err != nil {
		db.logger.WithError(err).WithField("source_path", sourcePath).Error("Failed to remove song by source")
	}
	return err
}

// CreateSetlist inserts a new setlist row and returns its ID. The
// in-memory aggregate (with its mandatory first block) is saved separately.
func (db *Database) CreateSetlist(name string) (int, error) {
	result, err := db.conn.Exec("INSERT INTO setlists (name) VALUES (?)", name)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

// ListSetlists returns metadata for every stored setlist, newest first.
func (db *Database) ListSetlists() ([]models.SetlistInfo, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, created_at, updated_at
		FROM setlists
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []models.SetlistInfo
	for rows.Next() {
		var info models.SetlistInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.CreatedAt, &info.UpdatedAt); err != nil {
			return nil, err
		}
		lists = append(lists, info)
	}
	return lists, rows.Err()
}

// RenameSetlist updates a setlist's display name.
func (db *Database) RenameSetlist(id int, name string) error {
	_, err := db.conn.Exec("UPDATE setlists SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", name, id)
	return err
}

// DeleteSetlist removes a setlist and (via cascade) its items.
func (db *Database) DeleteSetlist(id int) error {
	_, err := db.conn.Exec("DELETE FROM setlists WHERE id = ?", id)
	return err
}

// SaveSetlist persists the whole aggregate in one transaction: existing
// rows are replaced by the current block/item layout. Whole-setlist
// replacement keeps concurrent saves serialized at the database.
func (db *Database) SaveSetlist(id int, s *setlist.Setlist) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE setlists SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", s.Name, id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM setlist_items WHERE setlist_id = ?", id); err != nil {
		return err
	}

	insert := tx.Stmt(db.insertItemStmt)
	defer insert.Close()

	for blockIdx, block := range s.Blocks {
		for itemIdx, item := range block.Items {
			switch it := item.(type) {
			case setlist.Music:
				_, err = insert.Exec(id, blockIdx, block.Name, itemIdx, "music",
					it.Title, it.Artist, it.OriginalKey.String(), it.CurrentKey.String(),
					it.BPM, it.ChartRef, it.SimplifiedChartRef, boolToInt(it.UseSimplified), "", it.InlineText)
			case setlist.Pause:
				_, err = insert.Exec(id, blockIdx, block.Name, itemIdx, "pause",
					"", "", "", "", 0, "", "", 0, it.Label, "")
			default:
				err = fmt.Errorf("unknown item type %T", item)
			}
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadSetlist reconstructs the aggregate from its rows: rows arrive
// ordered by (block_index, item_index) and are grouped by
// (block_index, block_name). A setlist with no item rows still gets its
// mandatory first block.
func (db *Database) LoadSetlist(id int) (*setlist.Setlist, error) {
	var name string
	err := db.conn.QueryRow("SELECT name FROM setlists WHERE id = ?", id).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("setlist with ID %d not found", id)
		}
		return nil, err
	}

	rows, err := db.selectItemsStmt.Query(id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := &setlist.Setlist{Name: name}
	lastBlock := -1

	for rows.Next() {
		var (
			blockIndex, itemIndex, bpm, useSimplified int
			blockName, itemType, songTitle, artist    string
			tom, currentTom, chartRef, simplifiedRef  string
			pauseLabel, inlineText                    string
		)
		if err := rows.Scan(&blockIndex, &blockName, &itemIndex, &itemType,
			&songTitle, &artist, &tom, &currentTom, &bpm,
			&chartRef, &simplifiedRef, &useSimplified, &pauseLabel, &inlineText); err != nil {
			return nil, err
		}

		if blockIndex != lastBlock {
			s.Blocks = append(s.Blocks, setlist.Block{Name: blockName, Items: []setlist.Item{}})
			lastBlock = blockIndex
		}
		blockPos := len(s.Blocks) - 1

		switch itemType {
		case "music":
			if currentTom == "" {
				currentTom = tom
			}
			s.Blocks[blockPos].Items = append(s.Blocks[blockPos].Items, setlist.Music{
				Title:              songTitle,
				Artist:             artist,
				OriginalKey:        musickey.Parse(tom),
				CurrentKey:         musickey.Parse(currentTom),
				BPM:                bpm,
				ChartRef:           chartRef,
				SimplifiedChartRef: simplifiedRef,
				UseSimplified:      useSimplified != 0,
				InlineText:         inlineText,
			})
		case "pause":
			s.Blocks[blockPos].Items = append(s.Blocks[blockPos].Items, setlist.Pause{Label: pauseLabel})
		default:
			return nil, fmt.Errorf("unknown item type %q in setlist %d", itemType, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(s.Blocks) == 0 {
		s.Blocks = []setlist.Block{{Name: "Bloco 1", Items: []setlist.Item{}}}
	}
	return s, nil
}

// CheckHealth verifies the connection is alive (used by /health).
func (db *Database) CheckHealth() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	statements := []*sql.Stmt{
		db.insertSongStmt,
		db.updateSongStmt,
		db.getSongByIDStmt,
		db.songBySourceStmt,
		db.removeSourceStmt,
		db.searchSongsStmt,
		db.insertItemStmt,
		db.selectItemsStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanSongRows scans standard song result sets into a slice of
// models.CatalogSong. Callers must have already deferred rows.Close().
func scanSongRows(rows *sql.Rows) ([]models.CatalogSong, error) {
	var songs []models.CatalogSong
	for rows.Next() {
		var song models.CatalogSong
		if err := rows.Scan(&song.ID, &song.Title, &song.Artist, &song.OriginalKey,
			&song.BPM, &song.ChartRef, &song.SimplifiedChartRef, &song.Duration, &song.SourcePath); err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}
