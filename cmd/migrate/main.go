package main

import (
	"context"
	"time"

	mongoMigration "appointments/internal/migrations/mongo"
	"appointments/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	if err := cfg.SetMongo(); err != nil {
		cfg.Log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer func() {
		if err := cfg.Client.GracefulShutdown(context.Background()); err != nil {
			cfg.Log.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}()

	cfg.Log.Info("Starting Mongo migration job", "database", cfg.MongoDatabaseName)
	db := cfg.Client.MongoHandle().Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		cfg.Log.Error("Migration failed", "error", err)
		return
	}
	cfg.Log.Info("Migration completed successfully")
}
