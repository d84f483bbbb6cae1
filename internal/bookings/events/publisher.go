package events

import (
	"context"
	"fmt"

	"appointments/pkg/kafka"
	"appointments/pkg/model"
)

const SchemaVersion = "1"

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// BookingPublisher emits bookingConfirmed events keyed by datetime slot, so
// every event for one slot lands on the same partition.
type BookingPublisher struct {
	producer publisher
	source   string
}

func NewBookingPublisher(producer publisher, source string) *BookingPublisher {
	return &BookingPublisher{
		producer: producer,
		source:   source,
	}
}

func (p *BookingPublisher) PublishBookingConfirmed(ctx context.Context, booking *model.Booking) error {
	msg, err := kafka.NewMessage().
		WithKey(booking.Datetime).
		WithValue(booking.Confirmed()).
		WithTimestamp(booking.CreatedAt).
		WithEventType(model.EventBookingConfirmed).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithCorrelationID(booking.ID).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", model.EventBookingConfirmed, err)
	}

	return p.producer.Publish(ctx, msg)
}
