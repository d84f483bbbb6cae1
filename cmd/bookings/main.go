package main

import (
	"context"

	"appointments/internal/bookings/events"
	"appointments/internal/bookings/handler"
	"appointments/internal/bookings/notifier"
	"appointments/internal/bookings/repository"
	"appointments/internal/bookings/service"
	"appointments/internal/bookings/validator"
	mongoMigration "appointments/internal/migrations/mongo"
	"appointments/pkg/app"
	"appointments/pkg/config"
	"appointments/pkg/kafka"
	kafka_config "appointments/pkg/kafka/config"
	kafka_middleware "appointments/pkg/kafka/middleware"
	"appointments/pkg/mailer"
	"appointments/pkg/metrics"
	"appointments/pkg/realtime"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	kafkaCfg := kafka_config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	// Log all configuration values
	cfg.LogConfiguration()
	kafkaCfg.LogConfiguration(cfg.Log)

	cfg.Log.Info("Starting Bookings service")
	m := metrics.New(ServiceName)
	hub := realtime.NewHub(cfg.Log, realtime.WithAllowedOrigin(cfg.CORSAllowOrigin), realtime.WithMetrics(m))

	serverApp := app.NewApplication(cfg,
		app.WithMetrics(m),
		app.WithEvents(hub),
		app.WithRoutes(handler.PathBook, handler.PathBookings),
	)

	repo := initRepository(cfg, serverApp)
	bookingNotifier := initNotifier(cfg, kafkaCfg, hub, m, serverApp)
	bookingService := service.NewBookingService(
		repo,
		validator.NewBookingValidator(cfg.Log),
		bookingNotifier,
		cfg.Log,
		service.WithMetrics(m),
	)

	serverApp.OnShutdown("mongo", cfg.Client.GracefulShutdown)

	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log),
		handler.NewHealthHandler(repo, cfg.Log),
	)
	serverApp.Run()
}

func initRepository(cfg *config.Config, serverApp *app.Application) repository.BookingRepository {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		repo := repository.NewMemoryBookingRepository(cfg.Log, cfg.PurgeInterval, nil)
		repo.Start()
		serverApp.OnShutdown("memory-store", func(ctx context.Context) error {
			repo.Stop()
			return nil
		})
		cfg.Log.Warn("Using in-memory booking store; bookings are lost on restart")
		return repo

	default:
		if err := cfg.SetMongo(); err != nil {
			cfg.Log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
		defer cancel()
		db := cfg.Client.MongoHandle().Database(cfg.MongoDatabaseName)
		if err := mongoMigration.EnsureIndexes(ctx, db); err != nil {
			cfg.Log.Fatal("Failed to ensure booking indexes", "error", err)
		}
		cfg.Log.Info("Booking repository initialized", "database", cfg.MongoDatabaseName)
		return repository.NewMongoBookingRepository(cfg)
	}
}

func initNotifier(
	cfg *config.Config,
	kafkaCfg *kafka_config.Config,
	hub *realtime.Hub,
	m *metrics.Metrics,
	serverApp *app.Application,
) *notifier.Notifier {
	opts := []notifier.Option{
		notifier.WithBroadcaster(hub),
		notifier.WithMetrics(m),
	}

	if cfg.MailEnabled() {
		smtpMailer, err := mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			FromName: cfg.MailFromName,
			Timeout:  cfg.MailTimeout,
		}, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create SMTP mailer", "error", err)
		}
		opts = append(opts, notifier.WithMailer(smtpMailer, cfg.MailTimeout))
		cfg.Log.Info("Confirmation emails enabled", "host", cfg.MailHost)
	} else {
		cfg.Log.Warn("Mail credentials not set; confirmation emails disabled")
	}

	var producer *kafka.Producer
	if kafkaCfg.Enabled() {
		var err error
		producer, err = kafka.NewProducer(kafkaCfg, kafkaCfg.BookingsTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
		opts = append(opts, notifier.WithPublisher(events.NewBookingPublisher(producer, ServiceName), kafkaCfg.ProducerWriteTimeout))
		cfg.Log.Info("Booking events enabled", "topic", producer.Topic())
	}

	n := notifier.New(cfg.Log, opts...)

	// Order matters: stop new broadcasts, drain background legs, then close
	// the writer they publish through.
	serverApp.OnShutdown("realtime-hub", func(ctx context.Context) error {
		hub.Close()
		return nil
	})
	serverApp.OnShutdown("notifications", func(ctx context.Context) error {
		return waitContext(ctx, n.Wait)
	})
	if producer != nil {
		serverApp.OnShutdown("kafka-producer", func(ctx context.Context) error {
			return producer.Close()
		})
	}

	return n
}

func waitContext(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
