package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// authMiddleware checks if the user is authenticated for protected routes
func (ss *SetlistServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth check if authentication is disabled
		if !ss.authService.IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		// Allow access to auth-related endpoints and static assets
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		sessionManager := ss.authService.GetSessionManager()
		session, valid := sessionManager.GetSessionFromRequest(r)
		if !valid {
			// Redirect to login page for browser requests
			if isBrowserRequest(r) {
				http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"})
			return
		}

		// Refresh session on each request
		ss.authService.RefreshSession(session.ID)

		next.ServeHTTP(w, r)
	})
}

// requireEditor enforces the editor role on mutating routes. Viewers can
// follow the show but never change it. Returns false after writing the
// error response.
func (ss *SetlistServer) requireEditor(w http.ResponseWriter, r *http.Request) bool {
	if !ss.authService.IsEnabled() {
		return true
	}

	sessionManager := ss.authService.GetSessionManager()
	session, valid := sessionManager.GetSessionFromRequest(r)
	if !valid || !ss.authService.CanEdit(session) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "Editor role required"})
		return false
	}
	return true
}

// isPublicPath checks if a path should be accessible without authentication
func isPublicPath(path string) bool {
	publicPaths := []string{
		"/login",
		"/api/auth/login",
		"/api/auth/logout",
		"/static/",
		"/health",
	}

	for _, publicPath := range publicPaths {
		if strings.HasPrefix(path, publicPath) {
			return true
		}
	}

	return false
}

// isBrowserRequest checks if the request is from a browser (vs API client)
func isBrowserRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}

// handleLogin serves the login page
func (ss *SetlistServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		// Already logged in users go straight to the app
		if ss.authService.IsEnabled() {
			sessionManager := ss.authService.GetSessionManager()
			if _, valid := sessionManager.GetSessionFromRequest(r); valid {
				http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
				return
			}
		}

		http.ServeFile(w, r, ss.config.Server.StaticDir+"/login.html")
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// handleAuthLogin handles login API requests
func (ss *SetlistServer) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if credentials.Username == "" || credentials.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Username and password required"})
		return
	}

	session, err := ss.authService.Login(credentials.Username, credentials.Password)
	if err != nil {
		ss.logger.WithError(err).WithField("username", credentials.Username).Warn("Failed login attempt")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
		return
	}

	sessionManager := ss.authService.GetSessionManager()
	sessionManager.SetSessionCookie(w, session)

	ss.logger.WithField("username", credentials.Username).Info("User logged in successfully")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// handleAuthLogout handles logout requests
func (ss *SetlistServer) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !ss.authService.IsEnabled() {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
		return
	}

	sessionManager := ss.authService.GetSessionManager()
	session, valid := sessionManager.GetSessionFromRequest(r)
	if valid {
		ss.authService.Logout(session.ID)
		ss.logger.WithField("username", session.Username).Info("User logged out")
	}

	sessionManager.ClearSessionCookie(w)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}
