package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"appointments/pkg/logger"
	"appointments/pkg/model"

	"github.com/wneessen/go-mail"
)

type mockSender struct {
	sendFunc func(ctx context.Context, messages ...*mail.Msg) error
	sent     []*mail.Msg
}

func (m *mockSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	m.sent = append(m.sent, messages...)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, messages...)
	}
	return nil
}

func newTestMailer(s sender) *SMTPMailer {
	return &SMTPMailer{
		sender:   s,
		from:     "scheduler@example.com",
		fromName: "Appointment Scheduler",
		log:      logger.Discard(),
	}
}

func TestRenderConfirmation(t *testing.T) {
	body, err := RenderConfirmation(model.BookingConfirmed{
		Name:     "Ada",
		Datetime: "2024-05-01T10:00",
		Phone:    "5551234567",
	})
	if err != nil {
		t.Fatalf("RenderConfirmation: %v", err)
	}

	for _, want := range []string{
		"Hello Ada,",
		"successfully booked",
		"Date &amp; Time:</strong> 2024-05-01T10:00",
		"Phone:</strong> 5551234567",
		"Thank you!",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderConfirmation_EscapesName(t *testing.T) {
	body, err := RenderConfirmation(model.BookingConfirmed{Name: "<script>alert(1)</script>"})
	if err != nil {
		t.Fatalf("RenderConfirmation: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Errorf("name not escaped: %s", body)
	}
}

func TestSendConfirmation(t *testing.T) {
	s := &mockSender{}
	m := newTestMailer(s)

	err := m.SendConfirmation(context.Background(), "ada@example.com", model.BookingConfirmed{
		Name:     "Ada",
		Datetime: "2024-05-01T10:00",
		Phone:    "5551234567",
	})
	if err != nil {
		t.Fatalf("SendConfirmation: %v", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(s.sent))
	}

	msg := s.sent[0]
	if got := msg.GetToString(); len(got) != 1 || got[0] != "<ada@example.com>" {
		t.Errorf("To = %v", got)
	}
	if got := msg.GetGenHeader(mail.HeaderSubject); len(got) != 1 || got[0] != ConfirmationSubject {
		t.Errorf("Subject = %v", got)
	}
	if got := msg.GetFromString(); len(got) != 1 || got[0] != `"Appointment Scheduler" <scheduler@example.com>` {
		t.Errorf("From = %v", got)
	}
}

func TestSendConfirmation_InvalidRecipient(t *testing.T) {
	s := &mockSender{}
	m := newTestMailer(s)

	err := m.SendConfirmation(context.Background(), "not an address", model.BookingConfirmed{Name: "Ada"})
	if err == nil {
		t.Fatal("expected error for malformed recipient")
	}
	if len(s.sent) != 0 {
		t.Error("message sent to malformed recipient")
	}
}

func TestSendConfirmation_TransportFailure(t *testing.T) {
	transportErr := errors.New("connection refused")
	m := newTestMailer(&mockSender{
		sendFunc: func(ctx context.Context, messages ...*mail.Msg) error {
			return transportErr
		},
	})

	err := m.SendConfirmation(context.Background(), "ada@example.com", model.BookingConfirmed{Name: "Ada"})
	if !errors.Is(err, transportErr) {
		t.Errorf("expected transport error, got %v", err)
	}
}
