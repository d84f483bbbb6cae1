package handler

import (
	"encoding/json"
	"net/http"

	bookingserrors "appointments/internal/bookings/errors"
	"appointments/internal/bookings/service"
	apperrors "appointments/pkg/errors"
	httputil "appointments/pkg/http"
	"appointments/pkg/logger"
	"appointments/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	PathBook     = "/api/book"
	PathBookings = "/api/bookings"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("Malformed booking body", "error", err)
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput(bookingserrors.MsgInvalidBody)); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if _, err := h.service.Admit(r.Context(), &req); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteMessage(w, bookingserrors.MsgBooked); err != nil {
		h.log.Error("failed to write success response", "handler", "Book", "operation", "WriteMessage", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.ListAll(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST(PathBook, h.Book)
	router.GET(PathBookings, h.List)
}
