package server

import (
	"path/filepath"
	"strings"

	"bandstand/internal/chartstore"

	"github.com/fsnotify/fsnotify"
)

// startFileWatcher initializes fsnotify monitoring on the charts directory.
// Chart files edited directly on disk (the band keeps them in a synced
// folder) must drop their cached renderings.
func (ss *SetlistServer) startFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ss.watcher = watcher

	go ss.watchCharts()

	if err := ss.watcher.Add(ss.charts.Dir()); err != nil {
		return err
	}

	ss.logger.WithField("charts_dir", ss.charts.Dir()).Info("Chart watcher started")
	return nil
}

// watchCharts selects on watcher channels and dispatches events.
func (ss *SetlistServer) watchCharts() {
	defer ss.watcher.Close()

	for {
		select {
		case event, ok := <-ss.watcher.Events:
			if !ok {
				return
			}
			ss.handleChartEvent(event)

		case err, ok := <-ss.watcher.Errors:
			if !ok {
				return
			}
			ss.logger.WithError(err).Error("Chart watcher error")
		}
	}
}

// handleChartEvent invalidates cached renderings for changed chart files.
func (ss *SetlistServer) handleChartEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	ref, ok := chartstore.RefFromFilename(event.Name)
	if !ok {
		return
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		ss.pageCache.InvalidateRef(ref)
		ss.logger.WithField("ref", ref).Debug("Invalidated cached renderings after chart change")
	}
}

// stopFileWatcher closes the watcher (idempotent).
func (ss *SetlistServer) stopFileWatcher() {
	if ss.watcher != nil {
		ss.watcher.Close()
	}
}
