package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"bandstand/internal/auth"
	"bandstand/internal/cache"
	"bandstand/internal/catalog"
	"bandstand/internal/chartstore"
	"bandstand/internal/config"
	"bandstand/internal/database"
	"bandstand/internal/performance"
	"bandstand/internal/tunnel"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// SetlistServer represents the main setlist and chart server
type SetlistServer struct {
	db            *database.Database
	config        *config.Config
	charts        *chartstore.FileStore
	pageCache     *cache.PageCache
	watcher       *fsnotify.Watcher
	importer      *catalog.Importer
	authService   *auth.Service
	tunnelService *tunnel.Service
	performance   *performance.StateManager
	logger        *logrus.Logger
	mux           *http.ServeMux
	routesOnce    sync.Once
	setlistLocks  sync.Map
	httpServer    *http.Server
}

// lockSetlist serializes edits to one setlist: the whole-setlist save is
// transactional, but without this lock two concurrent load-modify-save
// requests would overwrite each other's change. Returns the unlock func.
func (ss *SetlistServer) lockSetlist(id int) func() {
	mu, _ := ss.setlistLocks.LoadOrStore(id, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}

// NewSetlistServer creates a new setlist server instance
func NewSetlistServer(cfg *config.Config, db *database.Database) (*SetlistServer, error) {
	logger := setupLogger(&cfg.Logging)

	charts, err := chartstore.NewFileStore(cfg.Charts.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open chart store: %w", err)
	}

	authService, err := auth.NewService(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	tunnelService, err := tunnel.NewService(&cfg.Tunnel)
	if err != nil {
		logger.WithError(err).Warn("Tunnel service not available")
		tunnelService = nil
	}

	server := &SetlistServer{
		db:            db,
		config:        cfg,
		charts:        charts,
		pageCache:     cache.NewPageCache(),
		importer:      catalog.NewImporter(cfg.Catalog.SupportedFormats),
		authService:   authService,
		tunnelService: tunnelService,
		performance:   performance.NewStateManager(),
		logger:        logger,
		mux:           http.NewServeMux(),
	}

	return server, nil
}

// setupLogger builds the server logger from the logging configuration.
func setupLogger(cfg *config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, logging to stderr")
		} else {
			logger.SetOutput(file)
		}
	}

	return logger
}

// ScanRecordings scans the recordings directory into the song catalog.
func (ss *SetlistServer) ScanRecordings() error {
	if !ss.config.Catalog.ScanOnStartup {
		ss.logger.Info("Skipping recordings scan (disabled in config)")
		return nil
	}

	ss.logger.WithField("recordings_path", ss.config.Catalog.RecordingsPath).Info("Scanning recordings")

	imported, err := ss.importer.ScanDirectory(ss.config.Catalog.RecordingsPath, ss.db)
	if err != nil {
		return err
	}

	ss.logger.WithField("imported", imported).Info("Recordings scan complete")
	return nil
}

// Start starts the setlist server
func (ss *SetlistServer) Start() {
	if ss.config.Charts.WatchForChanges {
		if err := ss.startFileWatcher(); err != nil {
			ss.logger.WithError(err).Warn("Could not start chart watcher")
		} else {
			defer ss.stopFileWatcher()
		}
	}

	songs, err := ss.db.GetAllSongs()
	songCount := 0
	if err == nil {
		songCount = len(songs)
	}

	localAddress := fmt.Sprintf("http://%s", ss.config.GetAddress())

	ss.logger.WithFields(logrus.Fields{
		"port":       ss.config.Server.Port,
		"song_count": songCount,
		"charts_dir": ss.charts.Dir(),
	}).Info("Bandstand server starting")
	ss.logger.WithField("address", localAddress).Info("Local access")

	if ss.tunnelService != nil {
		ctx := context.Background()
		if err := ss.tunnelService.StartTunnel(ctx, localAddress); err != nil {
			ss.logger.WithError(err).Warn("Could not start ngrok tunnel")
		} else {
			defer ss.tunnelService.Stop()
		}
	}

	ss.httpServer = &http.Server{
		Addr:        ss.config.GetAddress(),
		Handler:     ss.Handler(),
		ReadTimeout: time.Duration(ss.config.Server.ReadTimeout) * time.Second,
	}

	if err := ss.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		ss.logger.WithError(err).Fatal("Server failed to start")
	}
}

// Handler returns the fully wrapped HTTP handler (used by Start and tests).
// Routes are registered on first use.
func (ss *SetlistServer) Handler() http.Handler {
	ss.routesOnce.Do(ss.setupRoutes)
	return ss.panicRecoveryMiddleware(
		ss.corsMiddleware(
			ss.requestLoggingMiddleware(
				ss.authMiddleware(ss.mux))))
}

func (ss *SetlistServer) setupRoutes() {
	ss.mux.HandleFunc("/", ss.handleHome)
	ss.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(ss.config.Server.StaticDir))))
	ss.mux.HandleFunc("/health", ss.handleHealthCheck)

	// Auth routes
	ss.mux.HandleFunc("/login", ss.handleLogin)
	ss.mux.HandleFunc("/api/auth/login", ss.handleAuthLogin)
	ss.mux.HandleFunc("/api/auth/logout", ss.handleAuthLogout)

	// Catalog routes
	ss.mux.HandleFunc("/api/songs", ss.handleGetSongs)
	ss.mux.HandleFunc("/api/songs/count", ss.handleGetSongCount)
	ss.mux.HandleFunc("/api/songs/", ss.handleGetSongByID)
	ss.mux.HandleFunc("/api/catalog/import", ss.handleImportCSV)
	ss.mux.HandleFunc("/api/catalog/import-url", ss.handleImportCSVFromURL)

	// Chart routes
	ss.mux.HandleFunc("/api/charts", ss.handleCreateChart)
	ss.mux.HandleFunc("/api/charts/", ss.handleChartByRef)

	// Setlist routes
	ss.mux.HandleFunc("/api/setlists", ss.handleGetSetlists)
	ss.mux.HandleFunc("/api/setlists/create", ss.handleCreateSetlist)
	ss.mux.HandleFunc("/api/setlists/", ss.handleSetlistSubroutes)

	// Performance routes
	ss.mux.HandleFunc("/api/performance/state", ss.handleGetPerformanceState)
	ss.mux.HandleFunc("/api/performance/start", ss.handleStartPerformance)
	ss.mux.HandleFunc("/api/performance/cursor", ss.handleSetPerformanceCursor)
	ss.mux.HandleFunc("/api/performance/stop", ss.handleStopPerformance)
}

// handleSetlistSubroutes dispatches /api/setlists/{id}[/...] by path shape.
func (ss *SetlistServer) handleSetlistSubroutes(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// pathParts: ["api", "setlists", "{id}", ...]

	switch {
	case len(pathParts) == 3:
		ss.handleSetlistByID(w, r, pathParts)
	case len(pathParts) == 4 && pathParts[3] == "page":
		ss.handleGetPage(w, r, pathParts)
	case len(pathParts) >= 4 && pathParts[3] == "blocks":
		ss.handleBlockOperations(w, r, pathParts)
	default:
		http.NotFound(w, r)
	}
}

// Shutdown gracefully shuts down the setlist server
func (ss *SetlistServer) Shutdown() {
	ss.logger.Info("Shutting down setlist server...")

	ss.stopFileWatcher()

	if ss.tunnelService != nil {
		ss.tunnelService.Stop()
	}

	if ss.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ss.httpServer.Shutdown(ctx); err != nil {
			ss.logger.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	ss.logger.Info("Setlist server shutdown complete")
}
