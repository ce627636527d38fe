package server

import (
	"net/http"
	"path/filepath"
)

// handleHome serves the main SPA / index file from the configured static dir.
func (ss *SetlistServer) handleHome(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(ss.config.Server.StaticDir, "index.html"))
}
