package config

const (
	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvStoreDriver   = "STORE_DRIVER"
	EnvPurgeInterval = "PURGE_INTERVAL"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvMailHost     = "MAIL_HOST"
	EnvMailPort     = "MAIL_PORT"
	EnvMailUsername = "MAIL_USERNAME"
	EnvMailPassword = "MAIL_PASSWORD"
	EnvMailFromName = "MAIL_FROM_NAME"
	EnvMailTimeout  = "MAIL_TIMEOUT"

	// Legacy names kept for existing .env files.
	EnvEmailUser = "EMAIL_USER"
	EnvEmailPass = "EMAIL_PASS"

	EnvCORSAllowOrigin = "CORS_ALLOW_ORIGIN"

	EnvRateLimitRPS   = "RATE_LIMIT_RPS"
	EnvRateLimitBurst = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
