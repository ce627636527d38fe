package main

import (
	"os"
	"os/signal"
	"syscall"

	"bandstand/internal/config"
	"bandstand/internal/database"
	"bandstand/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	// Create and configure the setlist server
	setlistServer, err := server.NewSetlistServer(cfg, db)
	if err != nil {
		logger.WithError(err).Fatal("Error creating setlist server")
	}

	// Scan the recordings directory into the catalog
	if cfg.Catalog.ScanOnStartup {
		if _, err := os.Stat(cfg.Catalog.RecordingsPath); os.IsNotExist(err) {
			logger.WithField("recordings_path", cfg.Catalog.RecordingsPath).Warn("Recordings directory does not exist, skipping scan")
		} else if err := setlistServer.ScanRecordings(); err != nil {
			logger.WithError(err).Fatal("Error scanning recordings")
		}
	}

	// Warn when the catalog is still empty
	songs, err := db.GetAllSongs()
	if err != nil {
		logger.WithError(err).Warn("Could not get song count")
	} else if len(songs) == 0 {
		logger.Warn("Song catalog is empty. Import the band's CSV sheet or add recordings.")
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		setlistServer.Start()
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")
	setlistServer.Shutdown()
}
