package repository

import (
	"context"
	"time"

	"appointments/pkg/model"
)

// BookingRepository stores bookings keyed by their datetime slot. Expired
// bookings are invisible to every read.
type BookingRepository interface {
	// Create stores booking, assigning its ID. It returns
	// bookingserrors.ErrSlotTaken when a live booking already holds the slot.
	Create(ctx context.Context, booking *model.Booking) error
	FindByDatetime(ctx context.Context, datetime string) (*model.Booking, error)
	// FindAll returns live bookings ordered by datetime, byte-wise ascending.
	FindAll(ctx context.Context) ([]*model.Booking, error)
	Ping(ctx context.Context) error
}

// withTimeout bounds ctx by timeout unless ctx already expires sooner.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func liveCutoff(now time.Time) time.Time {
	return now.Add(-model.BookingTTL)
}
