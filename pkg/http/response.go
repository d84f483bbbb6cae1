package http

import (
	"encoding/json"
	"net/http"

	apperrors "appointments/pkg/errors"
)

// MessageResponse is the body of a successful command such as a booking.
type MessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps err to its HTTP status. Errors that are not an AppError
// become a generic 500 so internal details never leak to the client.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)
	resp := appErr.Response()
	if appErr.Code == apperrors.CodeInternal {
		resp.Details = nil
	}
	return WriteJSON(w, appErr.StatusCode(), resp)
}

func WriteMessage(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, MessageResponse{Message: message})
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, data)
}
