package model

import "time"

// BookingTTL is the retention window of a booking. The store destroys every
// record once createdAt+BookingTTL has elapsed.
const BookingTTL = 30 * 24 * time.Hour

// EventBookingConfirmed is emitted to real-time subscribers and the event
// stream after a booking is stored.
const EventBookingConfirmed = "bookingConfirmed"

type Booking struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	Phone     string    `json:"phone" bson:"phone"`
	Datetime  string    `json:"datetime" bson:"datetime"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ExpiresAt reports when the store is allowed to drop the booking.
func (b *Booking) ExpiresAt() time.Time {
	return b.CreatedAt.Add(BookingTTL)
}

// Expired reports whether the booking is past its retention window at now.
func (b *Booking) Expired(now time.Time) bool {
	return !now.Before(b.ExpiresAt())
}

// BookingRequest is the client payload of POST /api/book.
type BookingRequest struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email"`
	Phone    string `json:"phone" validate:"phone10"`
	Datetime string `json:"datetime" validate:"notblank"`
}

// BookingConfirmed is the payload of a bookingConfirmed event. Email is never
// part of it.
type BookingConfirmed struct {
	Name     string `json:"name"`
	Datetime string `json:"datetime"`
	Phone    string `json:"phone"`
}

func (b *Booking) Confirmed() BookingConfirmed {
	return BookingConfirmed{
		Name:     b.Name,
		Datetime: b.Datetime,
		Phone:    b.Phone,
	}
}
