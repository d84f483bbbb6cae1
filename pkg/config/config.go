package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"appointments/pkg/client"
	"appointments/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	StoreDriver   string
	PurgeInterval time.Duration

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	MailHost     string
	MailPort     int
	MailUsername string
	MailPassword string
	MailFromName string
	MailTimeout  time.Duration

	CORSAllowOrigin string

	RateLimitRPS   float64
	RateLimitBurst int

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first; variables already set win.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getEnvStr(EnvPort, DefaultPort),

		StoreDriver:   getEnvStr(EnvStoreDriver, DefaultStoreDriver),
		PurgeInterval: getEnvDuration(EnvPurgeInterval, DefaultPurgeInterval),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		MailHost:     getEnvStr(EnvMailHost, DefaultMailHost),
		MailPort:     getEnvNum(EnvMailPort, DefaultMailPort),
		MailUsername: getEnvStr(EnvMailUsername, os.Getenv(EnvEmailUser)),
		MailPassword: getEnvStr(EnvMailPassword, os.Getenv(EnvEmailPass)),
		MailFromName: getEnvStr(EnvMailFromName, DefaultMailFromName),
		MailTimeout:  getEnvDuration(EnvMailTimeout, DefaultMailTimeout),

		CORSAllowOrigin: getEnvStr(EnvCORSAllowOrigin, DefaultCORSAllowOrigin),

		RateLimitRPS:   getEnvFloat(EnvRateLimitRPS, DefaultRateLimitRPS),
		RateLimitBurst: getEnvNum(EnvRateLimitBurst, DefaultRateLimitBurst),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    getEnvStr(EnvLogFormat, DefaultLogFormat),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

// MailEnabled reports whether confirmation emails can be sent.
func (cfg *Config) MailEnabled() bool {
	return cfg.MailUsername != "" && cfg.MailPassword != ""
}

func (cfg *Config) SetMongo() error {
	return cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreDriverMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	case StoreDriverMemory:
		if cfg.PurgeInterval <= 0 {
			errors = append(errors, fmt.Sprintf("PurgeInterval must be positive, got: %s", cfg.PurgeInterval))
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreDriver must be one of [%s, %s], got: %s", StoreDriverMongo, StoreDriverMemory, cfg.StoreDriver))
	}

	if cfg.MailEnabled() {
		if cfg.MailHost == "" {
			errors = append(errors, "MailHost cannot be empty when mail credentials are set")
		}
		if cfg.MailPort < 1 || cfg.MailPort > 65535 {
			errors = append(errors, fmt.Sprintf("MailPort must be between 1 and 65535, got: %d", cfg.MailPort))
		}
		if cfg.MailTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MailTimeout must be positive, got: %s", cfg.MailTimeout))
		}
	}

	if cfg.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRPS must be positive, got: %g", cfg.RateLimitRPS))
	}
	if cfg.RateLimitBurst <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitBurst must be positive, got: %d", cfg.RateLimitBurst))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	for name, d := range map[string]time.Duration{
		"RequestTimeout":  cfg.RequestTimeout,
		"ReadTimeout":     cfg.ReadTimeout,
		"WriteTimeout":    cfg.WriteTimeout,
		"IdleTimeout":     cfg.IdleTimeout,
		"ShutdownTimeout": cfg.ShutdownTimeout,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"store_driver", cfg.StoreDriver,
		"purge_interval", cfg.PurgeInterval,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"mail_enabled", cfg.MailEnabled(),
		"mail_host", cfg.MailHost,
		"mail_port", cfg.MailPort,
		"mail_timeout", cfg.MailTimeout,
		"cors_allow_origin", cfg.CORSAllowOrigin,
		"rate_limit_rps", cfg.RateLimitRPS,
		"rate_limit_burst", cfg.RateLimitBurst,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
