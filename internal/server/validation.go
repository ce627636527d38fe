package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bandstand/internal/musickey"

	"github.com/sirupsen/logrus"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondJSON encodes a value as the JSON response body.
func (ss *SetlistServer) respondJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ss.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondWithValidationError sends a structured validation error response
func (ss *SetlistServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors []ValidationError) {
	ss.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errors,
	}).Warn("Validation failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	result := ValidationResult{
		Valid:  false,
		Errors: errors,
	}

	ss.respondJSON(w, result)
}

// respondWithError sends a structured error response
func (ss *SetlistServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := ss.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"error":   message,
		"code":    statusCode,
		"success": false,
	}

	ss.respondJSON(w, response)
}

// validateSetlistID validates and parses a setlist ID from the URL path
func (ss *SetlistServer) validateSetlistID(idStr string) (int, *ValidationError) {
	if idStr == "" {
		return 0, &ValidationError{
			Field:   "setlist_id",
			Message: "Setlist ID is required",
			Code:    "MISSING_SETLIST_ID",
		}
	}

	setlistID, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, &ValidationError{
			Field:   "setlist_id",
			Message: "Setlist ID must be a valid integer",
			Code:    "INVALID_SETLIST_ID_FORMAT",
		}
	}

	if setlistID <= 0 {
		return 0, &ValidationError{
			Field:   "setlist_id",
			Message: "Setlist ID must be positive",
			Code:    "INVALID_SETLIST_ID_VALUE",
		}
	}

	return setlistID, nil
}

// validateIndex validates a non-negative block or item index
func (ss *SetlistServer) validateIndex(field, idxStr string) (int, *ValidationError) {
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Message: "Index must be a valid integer",
			Code:    "INVALID_INDEX_FORMAT",
		}
	}

	if idx < 0 {
		return 0, &ValidationError{
			Field:   field,
			Message: "Index must not be negative",
			Code:    "INVALID_INDEX_VALUE",
		}
	}

	return idx, nil
}

// validateSetlistName validates a setlist or block name
func (ss *SetlistServer) validateSetlistName(name string) *ValidationError {
	if name == "" {
		return &ValidationError{
			Field:   "name",
			Message: "Name is required",
			Code:    "MISSING_NAME",
		}
	}

	if len(name) > 255 {
		return &ValidationError{
			Field:   "name",
			Message: "Name too long (max 255 characters)",
			Code:    "NAME_TOO_LONG",
		}
	}

	if strings.Contains(name, "\x00") || strings.Contains(name, "\n") || strings.Contains(name, "\r") {
		return &ValidationError{
			Field:   "name",
			Message: "Name contains invalid characters",
			Code:    "INVALID_NAME_CHARACTERS",
		}
	}

	return nil
}

// validateKeyName checks a key name parses to a real root (A-G plus
// accidental). Unknown keys are rejected up front so a retune never
// silently becomes a no-op.
func (ss *SetlistServer) validateKeyName(name string) (musickey.Key, *ValidationError) {
	key := musickey.Parse(name)
	if !key.IsValid() {
		return musickey.Key{}, &ValidationError{
			Field:   "key",
			Message: "Key must name a note from A to G with optional # or b",
			Code:    "INVALID_KEY_NAME",
		}
	}
	return key, nil
}

// validateSearchQuery validates search query parameters
func (ss *SetlistServer) validateSearchQuery(query string) *ValidationError {
	if len(query) > 1000 {
		return &ValidationError{
			Field:   "search",
			Message: "Search query too long (max 1000 characters)",
			Code:    "SEARCH_QUERY_TOO_LONG",
		}
	}

	if strings.Contains(query, "\x00") {
		return &ValidationError{
			Field:   "search",
			Message: "Search query contains invalid characters",
			Code:    "INVALID_SEARCH_CHARACTERS",
		}
	}

	return nil
}

// validateURL validates CSV import URLs
func (ss *SetlistServer) validateURL(urlStr string) *ValidationError {
	if urlStr == "" {
		return &ValidationError{
			Field:   "url",
			Message: "URL is required",
			Code:    "MISSING_URL",
		}
	}

	if len(urlStr) > 2048 {
		return &ValidationError{
			Field:   "url",
			Message: "URL too long (max 2048 characters)",
			Code:    "URL_TOO_LONG",
		}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return &ValidationError{
			Field:   "url",
			Message: "Invalid URL format",
			Code:    "INVALID_URL_FORMAT",
		}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{
			Field:   "url",
			Message: "URL must use HTTP or HTTPS protocol",
			Code:    "INVALID_URL_PROTOCOL",
		}
	}

	return nil
}

// sanitizeInput sanitizes user input to prevent injection attacks
func sanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)

	return input
}
