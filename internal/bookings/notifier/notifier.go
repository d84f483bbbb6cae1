package notifier

import (
	"context"
	"strings"
	"sync"
	"time"

	"appointments/pkg/logger"
	"appointments/pkg/metrics"
	"appointments/pkg/model"
)

const (
	DefaultMailTimeout    = 15 * time.Second
	DefaultPublishTimeout = 10 * time.Second
)

type Broadcaster interface {
	Broadcast(event string, payload any) error
}

type Mailer interface {
	SendConfirmation(ctx context.Context, to string, confirmation model.BookingConfirmed) error
}

type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, booking *model.Booking) error
}

// Notifier fans a stored booking out to every configured channel. Each
// channel is independent and its failures are logged, never returned.
type Notifier struct {
	broadcaster Broadcaster
	mailer      Mailer
	publisher   EventPublisher

	mailTimeout    time.Duration
	publishTimeout time.Duration

	metrics *metrics.Metrics
	log     *logger.Logger
	wg      sync.WaitGroup
}

type Option func(*Notifier)

func WithBroadcaster(b Broadcaster) Option {
	return func(n *Notifier) {
		n.broadcaster = b
	}
}

func WithMailer(m Mailer, timeout time.Duration) Option {
	return func(n *Notifier) {
		n.mailer = m
		if timeout > 0 {
			n.mailTimeout = timeout
		}
	}
}

func WithPublisher(p EventPublisher, timeout time.Duration) Option {
	return func(n *Notifier) {
		n.publisher = p
		if timeout > 0 {
			n.publishTimeout = timeout
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) {
		n.metrics = m
	}
}

func New(log *logger.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		mailTimeout:    DefaultMailTimeout,
		publishTimeout: DefaultPublishTimeout,
		log:            log,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify broadcasts synchronously and starts the email and event stream legs
// in the background, detached from ctx cancellation.
func (n *Notifier) Notify(ctx context.Context, booking *model.Booking) {
	log := n.log.With("booking_id", booking.ID, "datetime", booking.Datetime)

	if n.broadcaster != nil {
		if err := n.broadcaster.Broadcast(model.EventBookingConfirmed, booking.Confirmed()); err != nil {
			n.metrics.NotificationFailed(metrics.ChannelRealtime)
			log.Warn("Failed to broadcast booking", "error", err)
		} else {
			n.metrics.NotificationSent(metrics.ChannelRealtime)
		}
	}

	detached := context.WithoutCancel(ctx)

	if to := strings.TrimSpace(booking.Email); n.mailer != nil && to != "" {
		n.background(log, metrics.ChannelEmail, func() {
			mailCtx, cancel := context.WithTimeout(detached, n.mailTimeout)
			defer cancel()

			if err := n.mailer.SendConfirmation(mailCtx, to, booking.Confirmed()); err != nil {
				n.metrics.NotificationFailed(metrics.ChannelEmail)
				log.Warn("Failed to send confirmation email", "error", err)
				return
			}
			n.metrics.NotificationSent(metrics.ChannelEmail)
		})
	}

	if n.publisher != nil {
		n.background(log, metrics.ChannelKafka, func() {
			pubCtx, cancel := context.WithTimeout(detached, n.publishTimeout)
			defer cancel()

			if err := n.publisher.PublishBookingConfirmed(pubCtx, booking); err != nil {
				log.Warn("Failed to publish booking event", "error", err)
			}
		})
	}
}

func (n *Notifier) background(log *logger.Logger, channel string, fn func()) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.metrics.NotificationFailed(channel)
				log.Error("Notification panicked", "channel", channel, "panic", r)
			}
		}()
		fn()
	}()
}

// Wait blocks until every background leg started so far has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
