package mongo

import (
	"context"
	"fmt"
	"time"

	"appointments/internal/bookings/repository"
	"appointments/internal/migrations/mongo/validators"
	"appointments/pkg/logger"
	"appointments/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	IndexCreatedAtTTL = "createdAt_ttl"
	IndexDatetimeUniq = "datetime_unique"
	bookingTTLSeconds = int32(model.BookingTTL / time.Second)
)

// BookingsIndexes holds the TTL index that expires bookings 30 days after
// createdAt and the unique index that keeps one booking per slot.
var BookingsIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetName(IndexCreatedAtTTL).SetExpireAfterSeconds(bookingTTLSeconds),
	},
	{
		Keys:    bson.D{{Key: "datetime", Value: 1}},
		Options: options.Index().SetName(IndexDatetimeUniq).SetUnique(true),
	},
}

// RunMigration creates or updates the bookings collection with its schema
// validator and indexes.
func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	if err := ensureCollection(ctx, db, repository.CollectionName, validators.BookingValidator, log); err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", repository.CollectionName, err)
	}
	if err := EnsureIndexes(ctx, db); err != nil {
		return err
	}

	log.Info("All migrations applied successfully", "collection", repository.CollectionName)
	return nil
}

// EnsureIndexes creates the bookings indexes. It is idempotent and safe to
// call on every service start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(repository.CollectionName).Indexes().CreateMany(ctx, BookingsIndexes); err != nil {
		return fmt.Errorf("failed to ensure indexes for %s: %w", repository.CollectionName, err)
	}
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}
