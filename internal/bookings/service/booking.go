package service

import (
	"context"
	"errors"
	"strings"
	"time"

	bookingserrors "appointments/internal/bookings/errors"
	"appointments/internal/bookings/repository"
	"appointments/internal/bookings/validator"
	apperrors "appointments/pkg/errors"
	"appointments/pkg/logger"
	"appointments/pkg/metrics"
	"appointments/pkg/model"
)

type BookingService interface {
	Admit(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	ListAll(ctx context.Context) ([]*model.Booking, error)
}

// Notifier is told about every stored booking. It must not block admission
// on slow channels and never reports failure.
type Notifier interface {
	Notify(ctx context.Context, booking *model.Booking)
}

type bookingService struct {
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	notifier  Notifier
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*bookingService)

// WithClock replaces time.Now as the source of createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *bookingService) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *bookingService) {
		s.metrics = m
	}
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	notifier Notifier,
	log *logger.Logger,
	opts ...Option,
) BookingService {
	s := &bookingService{
		repo:      repo,
		validator: validator,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) Admit(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	if err := s.validator.Validate(req); err != nil {
		s.metrics.BookingRejected(metrics.RejectInvalid)
		s.log.Debug("Booking request rejected", "error", err)
		return nil, apperrors.InvalidInput(bookingserrors.MsgInvalidInput)
	}

	booking := &model.Booking{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Phone:    req.Phone,
		Datetime: req.Datetime,
	}

	if err := s.verifySlotFree(ctx, booking.Datetime); err != nil {
		return nil, err
	}

	booking.CreatedAt = s.now().UTC()
	if err := s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrSlotTaken) {
			s.metrics.BookingRejected(metrics.RejectConflict)
			s.log.Info("Booking lost the race for its slot", "datetime", booking.Datetime)
			return nil, apperrors.SlotConflict(bookingserrors.MsgSlotConflict)
		}
		s.metrics.BookingRejected(metrics.RejectStore)
		s.log.Error("Failed to create booking", "datetime", booking.Datetime, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.metrics.BookingAdmitted()
	s.log.Info("Booking created successfully",
		"id", booking.ID,
		"datetime", booking.Datetime,
	)

	if s.notifier != nil {
		s.notifier.Notify(ctx, booking)
	}
	return booking, nil
}

func (s *bookingService) verifySlotFree(ctx context.Context, datetime string) error {
	_, err := s.repo.FindByDatetime(ctx, datetime)
	if err == nil {
		s.metrics.BookingRejected(metrics.RejectConflict)
		return apperrors.SlotConflict(bookingserrors.MsgSlotConflict)
	}
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return nil
	}

	s.metrics.BookingRejected(metrics.RejectStore)
	s.log.Error("Failed to check slot availability", "datetime", datetime, "error", err)
	return apperrors.Internal("Failed to check slot availability", err)
}

func (s *bookingService) ListAll(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := s.repo.FindAll(ctx)
	if err != nil {
		s.log.Error("Failed to list bookings", "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	return bookings, nil
}
