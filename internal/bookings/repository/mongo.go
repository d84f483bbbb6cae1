package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "appointments/internal/bookings/errors"
	"appointments/pkg/config"
	"appointments/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	CollectionName = "bookings"
)

type mongoBookingRepository struct {
	collection   *mongo.Collection
	readTimeout  time.Duration
	writeTimeout time.Duration
	now          func() time.Time
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.MongoHandle().Database(cfg.MongoDatabaseName)
	return newMongoBookingRepository(db.Collection(CollectionName), cfg.ReadTimeout, cfg.WriteTimeout, time.Now)
}

func newMongoBookingRepository(collection *mongo.Collection, readTimeout, writeTimeout time.Duration, now func() time.Time) *mongoBookingRepository {
	return &mongoBookingRepository{
		collection:   collection,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		now:          now,
	}
}

func (r *mongoBookingRepository) liveFilter(extra bson.M) bson.M {
	filter := bson.M{"createdAt": bson.M{"$gt": liveCutoff(r.now())}}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = r.now()
	}
	booking.CreatedAt = booking.CreatedAt.UTC().Truncate(time.Millisecond)

	err := r.insert(ctx, booking)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	// The TTL monitor only runs about once a minute, so the unique index can
	// still hold a booking that has already expired.
	reclaimed, err := r.reclaimExpired(ctx, booking.Datetime)
	if err != nil {
		return err
	}
	if !reclaimed {
		return bookingserrors.ErrSlotTaken
	}

	err = r.insert(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrSlotTaken
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) insert(ctx context.Context, booking *model.Booking) error {
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) reclaimExpired(ctx context.Context, datetime string) (bool, error) {
	filter := bson.M{
		"datetime":  datetime,
		"createdAt": bson.M{"$lte": liveCutoff(r.now())},
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to reclaim expired booking: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoBookingRepository) FindByDatetime(ctx context.Context, datetime string) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, r.liveFilter(bson.M{"datetime": datetime})).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "datetime", Value: 1}})

	cursor, err := r.collection.Find(ctx, r.liveFilter(nil), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	return r.collection.Database().Client().Ping(ctx, readpref.Primary())
}
