package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by EVENT_STORE_DRIVER, READ_MODEL_DRIVER and SEQUENCE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

// Config holds application configuration.
type Config struct {
	Port          string
	IsProduction  bool
	DatabaseURL   string
	EnableDBCheck bool

	// Storage selection
	EventStoreDriver string
	ReadModelDriver  string
	SequenceDriver   string
	SQLitePath       string
	RedisAddress     string
	SnapshotEvery    int64
	SnapshotTTL      time.Duration

	// Messaging
	RabbitMQURL     string
	LedgerExchange  string
	ProjectionQueue string

	// Commands and projection
	StoreTimeout            time.Duration
	CommandMaxRetries       int
	ProjectionPartitions    int
	ProjectionPollInterval  time.Duration
	ProjectionBatchSize     int
	ProjectionLeaseTTL      time.Duration
	DeadLetterRetrySchedule string

	// HTTP
	JWTSecret          string
	JWTIssuer          string
	RateLimit          string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("EVENT_STORE_DRIVER", DriverMemory)
	viper.SetDefault("READ_MODEL_DRIVER", "")
	viper.SetDefault("SEQUENCE_DRIVER", "")
	viper.SetDefault("SQLITE_PATH", "ledger.db")
	viper.SetDefault("REDIS_ADDRESS", "")
	viper.SetDefault("SNAPSHOT_EVERY", 50)
	viper.SetDefault("SNAPSHOT_TTL", "24h")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("LEDGER_EXCHANGE", "ledger.events")
	viper.SetDefault("PROJECTION_QUEUE", "ledger.projection")
	viper.SetDefault("STORE_TIMEOUT", "5s")
	viper.SetDefault("COMMAND_MAX_RETRIES", 3)
	viper.SetDefault("PROJECTION_PARTITIONS", 4)
	viper.SetDefault("PROJECTION_POLL_INTERVAL", "2s")
	viper.SetDefault("PROJECTION_BATCH_SIZE", 200)
	viper.SetDefault("PROJECTION_LEASE_TTL", "30s")
	viper.SetDefault("DEAD_LETTER_RETRY_SCHEDULE", "@every 1m")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	// Read .env file if it exists
	// This allows overriding defaults with .env file values, which can then be overridden by actual environment variables.
	viper.AutomaticEnv()

	cfg := &Config{
		Port:                    viper.GetString("PORT"),
		IsProduction:            viper.GetBool("IS_PRODUCTION"),
		DatabaseURL:             viper.GetString("PGSQL_URL"),
		EnableDBCheck:           viper.GetBool("ENABLE_DB_CHECK"),
		EventStoreDriver:        strings.ToLower(viper.GetString("EVENT_STORE_DRIVER")),
		ReadModelDriver:         strings.ToLower(viper.GetString("READ_MODEL_DRIVER")),
		SequenceDriver:          strings.ToLower(viper.GetString("SEQUENCE_DRIVER")),
		SQLitePath:              viper.GetString("SQLITE_PATH"),
		RedisAddress:            viper.GetString("REDIS_ADDRESS"),
		SnapshotEvery:           viper.GetInt64("SNAPSHOT_EVERY"),
		RabbitMQURL:             viper.GetString("RABBITMQ_URL"),
		LedgerExchange:          viper.GetString("LEDGER_EXCHANGE"),
		ProjectionQueue:         viper.GetString("PROJECTION_QUEUE"),
		CommandMaxRetries:       viper.GetInt("COMMAND_MAX_RETRIES"),
		ProjectionPartitions:    viper.GetInt("PROJECTION_PARTITIONS"),
		ProjectionBatchSize:     viper.GetInt("PROJECTION_BATCH_SIZE"),
		DeadLetterRetrySchedule: viper.GetString("DEAD_LETTER_RETRY_SCHEDULE"),
		JWTSecret:               viper.GetString("JWT_SECRET"),
		JWTIssuer:               viper.GetString("JWT_ISSUER"),
		RateLimit:               viper.GetString("RATE_LIMIT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	// The read model and sequences follow the event store unless set explicitly.
	if cfg.ReadModelDriver == "" {
		cfg.ReadModelDriver = cfg.EventStoreDriver
	}
	if cfg.SequenceDriver == "" {
		cfg.SequenceDriver = cfg.EventStoreDriver
	}
	if err := checkDriver("EVENT_STORE_DRIVER", cfg.EventStoreDriver, DriverPostgres, DriverSQLite, DriverMemory); err != nil {
		return nil, err
	}
	if err := checkDriver("READ_MODEL_DRIVER", cfg.ReadModelDriver, DriverPostgres, DriverSQLite, DriverMemory); err != nil {
		return nil, err
	}
	if err := checkDriver("SEQUENCE_DRIVER", cfg.SequenceDriver, DriverPostgres, DriverSQLite, DriverRedis, DriverMemory); err != nil {
		return nil, err
	}

	usesPostgres := cfg.EventStoreDriver == DriverPostgres || cfg.ReadModelDriver == DriverPostgres || cfg.SequenceDriver == DriverPostgres
	if usesPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("PGSQL_URL is required when a postgres driver is selected")
	}
	if cfg.SequenceDriver == DriverRedis && cfg.RedisAddress == "" {
		return nil, fmt.Errorf("REDIS_ADDRESS is required when SEQUENCE_DRIVER is redis")
	}

	cfg.StoreTimeout = durationOr("STORE_TIMEOUT", 5*time.Second)
	cfg.SnapshotTTL = durationOr("SNAPSHOT_TTL", 24*time.Hour)
	cfg.ProjectionPollInterval = durationOr("PROJECTION_POLL_INTERVAL", 2*time.Second)
	cfg.ProjectionLeaseTTL = durationOr("PROJECTION_LEASE_TTL", 30*time.Second)

	if cfg.CommandMaxRetries <= 0 {
		cfg.CommandMaxRetries = 3
	}
	if cfg.ProjectionPartitions <= 0 {
		cfg.ProjectionPartitions = 1
	}
	if cfg.ProjectionBatchSize <= 0 {
		cfg.ProjectionBatchSize = 200
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.RabbitMQURL == "" {
		log.Println("Warning: RABBITMQ_URL not set. Events are projected in-process only.")
	}

	return cfg, nil
}

func checkDriver(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q, expected one of %s", key, value, strings.Join(allowed, ", "))
}

// durationOr parses a duration setting, falling back to def with a warning.
func durationOr(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		}
		return def
	}
	return d
}
