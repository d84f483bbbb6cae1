package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "appointments/internal/bookings/errors"
	"appointments/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const testNamespace = "appointments.bookings"

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
}

func newTestMongoRepository(mt *mtest.T) *mongoBookingRepository {
	return newMongoBookingRepository(mt.Coll, time.Second, time.Second, fixedNow)
}

func bookingDoc(datetime string) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "name", Value: "Ada"},
		{Key: "phone", Value: "5551234567"},
		{Key: "datetime", Value: datetime},
		{Key: "createdAt", Value: fixedNow()},
	}
}

func duplicateKeyResponse() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error collection: appointments.bookings index: datetime_1",
	})
}

func TestMongoRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success assigns id and createdAt", func(mt *mtest.T) {
		repo := newTestMongoRepository(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		booking := newBooking("2024-05-01T10:00")
		if err := repo.Create(context.Background(), booking); err != nil {
			mt.Fatalf("Create: %v", err)
		}
		if booking.ID == "" {
			mt.Error("expected ID to be assigned")
		}
		if !booking.CreatedAt.Equal(fixedNow()) {
			mt.Errorf("CreatedAt = %v, want %v", booking.CreatedAt, fixedNow())
		}
	})

	mt.Run("duplicate key on live booking is slot taken", func(mt *mtest.T) {
		repo := newTestMongoRepository(mt)
		mt.AddMockResponses(
			duplicateKeyResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		err := repo.Create(context.Background(), newBooking("2024-05-01T10:00"))
		if !errors.Is(err, bookingserrors.ErrSlotTaken) {
			mt.Fatalf("expected ErrSlotTaken, got %v", err)
		}
	})

	mt.Run("duplicate key on expired booking reclaims the slot", func(mt *mtest.T) {
		repo := newTestMongoRepository(mt)
		mt.AddMockResponses(
			duplicateKeyResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(),
		)

		booking := newBooking("2024-05-01T10:00")
		if err := repo.Create(context.Background(), booking); err != nil {
			mt.Fatalf("Create: %v", err)
		}
		if booking.ID == "" {
			mt.Error("expected ID to be assigned")
		}
	})

	mt.Run("other write error is a store failure", func(mt *mtest.T) {
		repo := newTestMongoRepository(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "document failed validation",
		}))

		err := repo.Create(context.Background(), newBooking("2024-05-01T10:00"))
		if err == nil {
			mt.Fatal("expected error")
		}
		if errors.Is(err, bookingserrors.ErrSlotTaken) {
			mt.Errorf("store failure reported as slot conflict: %v", err)
		}
	})
}

func TestMongoRepository_FindByDatetime(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := newTestMongoRepository(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch, bookingDoc("2024-05-01T10:00")))

		booking, err := repo.FindByDatetime(context.Background(), "2024-05-01T10:00")
		if err != nil {
			mt.Fatalf("FindByDatetime: %v", err)
		}
		if booking.Datetime != "2024-05-01T10:00" || booking.Name != "Ada" {
			mt.Errorf("unexpected booking: %+v", booking)
		}
		if booking.ID == "" {
			mt.Error("expected ObjectID decoded into ID")
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := newTestMongoRepository(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch))

		_, err := repo.FindByDatetime(context.Background(), "2024-05-01T10:00")
		if !errors.Is(err, bookingserrors.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMongoRepository_FindAll(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns decoded bookings", func(mt *mtest.T) {
		repo := newTestMongoRepository(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch,
				bookingDoc("2024-05-01T09:00"),
				bookingDoc("2024-05-01T10:00"),
			),
		)

		bookings, err := repo.FindAll(context.Background())
		if err != nil {
			mt.Fatalf("FindAll: %v", err)
		}
		if len(bookings) != 2 {
			mt.Fatalf("got %d bookings, want 2", len(bookings))
		}
		if bookings[0].Datetime != "2024-05-01T09:00" || bookings[1].Datetime != "2024-05-01T10:00" {
			mt.Errorf("unexpected order: %q, %q", bookings[0].Datetime, bookings[1].Datetime)
		}
	})

	mt.Run("empty collection", func(mt *mtest.T) {
		repo := newTestMongoRepository(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch))

		bookings, err := repo.FindAll(context.Background())
		if err != nil {
			mt.Fatalf("FindAll: %v", err)
		}
		if bookings == nil || len(bookings) != 0 {
			mt.Errorf("expected empty non-nil slice, got %#v", bookings)
		}
	})

	mt.Run("query failure", func(mt *mtest.T) {
		repo := newTestMongoRepository(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad query",
		}))

		if _, err := repo.FindAll(context.Background()); err == nil {
			mt.Fatal("expected error")
		}
	})
}

func TestLiveCutoff(t *testing.T) {
	now := fixedNow()
	cutoff := liveCutoff(now)

	live := &model.Booking{CreatedAt: cutoff.Add(time.Millisecond)}
	expired := &model.Booking{CreatedAt: cutoff}

	if live.Expired(now) {
		t.Error("booking created after the cutoff must be live")
	}
	if !expired.Expired(now) {
		t.Error("booking created at the cutoff must be expired")
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	bounded, cancelBounded := withTimeout(ctx, time.Hour)
	defer cancelBounded()

	deadline, ok := bounded.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if time.Until(deadline) > time.Second {
		t.Errorf("shorter parent deadline not kept: %v", time.Until(deadline))
	}
}
