// Command bandctl imports the band's song sheet into the catalog from
// the command line, either from a local CSV file or straight from a
// published URL (e.g. a raw GitHub link).
package main

import (
	"flag"
	"fmt"
	"os"

	"bandstand/internal/catalog"
	"bandstand/internal/config"
	"bandstand/internal/database"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the server config file")
	csvFile := flag.String("file", "", "CSV file to import")
	csvURL := flag.String("url", "", "CSV URL to import (http or https)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if *csvFile == "" && *csvURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: bandctl -file songs.csv | -url https://.../songs.csv")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	var result catalog.ImportResult
	switch {
	case *csvFile != "":
		file, err := os.Open(*csvFile)
		if err != nil {
			logger.WithError(err).Fatal("Error opening CSV file")
		}
		defer file.Close()
		result, err = catalog.ImportCSV(db, file, logger)
		if err != nil {
			logger.WithError(err).Fatal("Import failed")
		}
	case *csvURL != "":
		result, err = catalog.ImportCSVFromURL(db, *csvURL, logger)
		if err != nil {
			logger.WithError(err).Fatal("Import failed")
		}
	}

	logger.WithFields(logrus.Fields{
		"imported":  result.Imported,
		"discarded": result.Discarded,
	}).Info("Catalog import finished")
}
