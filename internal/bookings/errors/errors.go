package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	// ErrSlotTaken is returned by a store when a live booking already holds
	// the requested datetime.
	ErrSlotTaken = errors.New("time slot is already booked")

	ErrStoreClosed = errors.New("booking store is closed")
)

// Client-facing messages.
const (
	MsgInvalidInput = "Name, valid phone, and Date/Time are required"
	MsgSlotConflict = "Time slot is already booked"
	MsgBooked       = "Appointment booked successfully"
	MsgInvalidBody  = "Invalid request body"
)
