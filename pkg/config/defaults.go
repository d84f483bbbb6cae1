package config

import "time"

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

const (
	DefaultPort        = "5000"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultStoreDriver = StoreDriverMongo

	DefaultPurgeInterval = 1 * time.Minute

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "appointments"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultMailHost     = "smtp.gmail.com"
	DefaultMailPort     = 587
	DefaultMailFromName = "Appointment Scheduler"
	DefaultMailTimeout  = 15 * time.Second

	DefaultCORSAllowOrigin = "*"

	DefaultRateLimitRPS   = 5.0
	DefaultRateLimitBurst = 10

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
