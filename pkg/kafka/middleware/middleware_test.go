package kafka_middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"appointments/pkg/kafka"
	"appointments/pkg/logger"
	"appointments/pkg/metrics"
)

func testMessage() kafka.Message {
	return kafka.Message{
		Key:     "slot",
		Value:   []byte(`{}`),
		Topic:   "bookings",
		Headers: map[string]string{kafka.HeaderEventID: "evt-1"},
	}
}

func TestLoggingProducerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf, Level: "debug", Format: logger.JSON, Service: "test"})
	mw := LoggingProducerMiddleware(log)

	publishErr := errors.New("broker down")
	err := mw(context.Background(), testMessage(), func(ctx context.Context, msg kafka.Message) error {
		return publishErr
	})
	if !errors.Is(err, publishErr) {
		t.Fatalf("error not propagated: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Failed to publish message", `"event_id":"evt-1"`, `"topic":"bookings"`, "broker down"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}

func TestMetricsProducerMiddleware(t *testing.T) {
	m := metrics.New("test")
	mw := MetricsProducerMiddleware(m)

	ok := func(ctx context.Context, msg kafka.Message) error { return nil }
	fail := func(ctx context.Context, msg kafka.Message) error { return errors.New("x") }

	_ = mw(context.Background(), testMessage(), ok)
	_ = mw(context.Background(), testMessage(), ok)
	_ = mw(context.Background(), testMessage(), fail)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `booking_notifications_total{channel="kafka",outcome="sent",service="test"} 2`) {
		t.Errorf("sent count missing:\n%s", body)
	}
	if !strings.Contains(body, `booking_notifications_total{channel="kafka",outcome="failed",service="test"} 1`) {
		t.Errorf("failed count missing:\n%s", body)
	}
}
