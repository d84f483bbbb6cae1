package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "appointments/pkg/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid input", apperrors.InvalidInput("bad"), http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"slot conflict", apperrors.SlotConflict("taken"), http.StatusConflict, apperrors.CodeSlotConflict},
		{"plain error", errors.New("db down"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if err := WriteError(w, tt.err); err != nil {
				t.Fatalf("WriteError() returned %v", err)
			}

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var body apperrors.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, body.Code)
			}
			if body.Message == "" {
				t.Errorf("expected a message in the error body")
			}
		})
	}
}

func TestWriteMessage(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteMessage(w, "Appointment booked successfully"); err != nil {
		t.Fatalf("WriteMessage() returned %v", err)
	}

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	var body MessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Message != "Appointment booked successfully" {
		t.Errorf("unexpected message %q", body.Message)
	}
}
