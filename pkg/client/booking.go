package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"appointments/pkg/model"
)

const (
	PathBook     = "/api/book"
	PathBookings = "/api/bookings"
)

// APIError is returned by BookingClient when the server answers with a
// non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("booking api: %d %s", e.StatusCode, e.Message)
}

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// Book submits a booking and returns the server's confirmation message.
func (c *BookingClient) Book(ctx context.Context, req model.BookingRequest) (string, error) {
	resp, err := c.httpClient.POST(ctx, PathBook, req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: resp.ErrorMessage()}
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return "", fmt.Errorf("could not decode booking response: %w", err)
	}
	return body.Message, nil
}

func (c *BookingClient) List(ctx context.Context) ([]model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, PathBookings)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.ErrorMessage()}
	}

	var bookings []model.Booking
	if err := resp.DecodeJSON(&bookings); err != nil {
		return nil, fmt.Errorf("could not decode bookings: %w", err)
	}
	return bookings, nil
}

func (c *BookingClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	return c.httpClient.WaitForHealthy(ctx, maxWait)
}
