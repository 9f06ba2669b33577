package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"CapIot.dashboard/internal/models"
)

// RespondWithError sends a JSON error response using the APIError model.
func RespondWithError(writer http.ResponseWriter, apiErr models.APIError) {
	status := apiErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	RespondWithJSON(writer, status, apiErr)
}

// RespondWithJSON sends a JSON response. Headers must be set before the
// status line is written.
func RespondWithJSON(writer http.ResponseWriter, statusCode int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(writer, "Failed to send JSON response", http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(append(body, '\n'))
}
