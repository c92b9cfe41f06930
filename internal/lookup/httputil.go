package lookup

import (
	"encoding/json"
	"net/http"

	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, log *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("lookup: encode response", "error", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, log *logger.Logger, status int, code, message string) {
	writeJSON(w, log, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
