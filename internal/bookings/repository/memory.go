package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingserrors "appointments/internal/bookings/errors"
	"appointments/pkg/logger"
	"appointments/pkg/model"

	"github.com/google/uuid"
)

// MemoryBookingRepository keeps bookings in process memory. It has no native
// TTL, so a purge loop started with Start drops expired records; reads hide
// expired records in between sweeps.
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking

	log      *logger.Logger
	interval time.Duration
	now      func() time.Time

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  bool
}

func NewMemoryBookingRepository(log *logger.Logger, purgeInterval time.Duration, now func() time.Time) *MemoryBookingRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryBookingRepository{
		bookings: make(map[string]*model.Booking),
		log:      log,
		interval: purgeInterval,
		now:      now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Create checks the slot and inserts under one lock, so two concurrent
// requests for the same datetime can never both succeed.
func (r *MemoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.bookings[booking.Datetime]; ok && !existing.Expired(now) {
		return bookingserrors.ErrSlotTaken
	}

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.ID = uuid.NewString()

	stored := *booking
	r.bookings[booking.Datetime] = &stored
	return nil
}

func (r *MemoryBookingRepository) FindByDatetime(ctx context.Context, datetime string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.bookings[datetime]
	if !ok || booking.Expired(r.now()) {
		return nil, bookingserrors.ErrNotFound
	}

	found := *booking
	return &found, nil
}

func (r *MemoryBookingRepository) FindAll(ctx context.Context) ([]*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	now := r.now()
	bookings := make([]*model.Booking, 0, len(r.bookings))
	for _, booking := range r.bookings {
		if booking.Expired(now) {
			continue
		}
		b := *booking
		bookings = append(bookings, &b)
	}
	r.mu.RUnlock()

	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].Datetime < bookings[j].Datetime
	})
	return bookings, nil
}

func (r *MemoryBookingRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Purge deletes every booking expired at the repository clock and reports
// how many were removed.
func (r *MemoryBookingRepository) Purge() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for datetime, booking := range r.bookings {
		if booking.Expired(now) {
			delete(r.bookings, datetime)
			removed++
		}
	}
	return removed
}

// Start runs the purge loop until Stop is called.
func (r *MemoryBookingRepository) Start() {
	r.started = true
	go r.purgeLoop()
}

func (r *MemoryBookingRepository) purgeLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := r.Purge(); removed > 0 {
				r.log.Info("Purged expired bookings", "count", removed)
			}
		case <-r.stopCh:
			return
		}
	}
}

func (r *MemoryBookingRepository) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		if r.started {
			<-r.doneCh
		}
	})
}
