package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"jobmart/services/pipeline/internal/errors"
)

const (
	BackendClickHouse = "clickhouse"
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendMemory     = "memory"

	// CoercionStrict fails the stage on the first non-numeric value.
	CoercionStrict = "strict"
	// CoercionLenient nulls non-numeric values and logs a warning.
	CoercionLenient = "lenient"

	MergeFirstNonNull = "first_non_null"
	MergeMostComplete = "most_complete"
)

type Config struct {
	DataSource         string
	GCSCredentialsFile string
	LoadConcurrency    int

	StoreBackend    string
	InsertBatchSize int

	ClickHouseDSN          string
	ClickHouseMaxOpenConns int
	ClickHouseMaxIdleConns int
	ClickHouseConnMaxLife  time.Duration
	ClickHouseUsername     string
	ClickHousePassword     string
	ClickHouseDatabase     string

	SQLitePath  string
	PostgresDSN string

	RawNamespace       string
	CleanNamespace     string
	AnalyticsNamespace string

	CoercionPolicy string
	DimensionMerge string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CheckpointTTL time.Duration

	NATSURL         string
	NATSConnTimeout time.Duration

	OTelCollectorURL string

	LogLevel  string
	LogFormat string
}

// LoadConfig reads the configuration from the environment, after merging an
// optional .env file from the working directory.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.InvalidInput("loading .env", err)
	}

	config := &Config{
		DataSource:         getEnvString("DATA_SOURCE", "./data"),
		GCSCredentialsFile: getEnvString("GCS_CREDENTIALS_FILE", ""),
		LoadConcurrency:    getEnvInt("LOAD_CONCURRENCY", 4),

		StoreBackend:    getEnvString("STORE_BACKEND", BackendClickHouse),
		InsertBatchSize: getEnvInt("INSERT_BATCH_SIZE", 10000),

		ClickHouseDSN:          getEnvString("CLICKHOUSE_DSN", "localhost:9000"),
		ClickHouseMaxOpenConns: getEnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		ClickHouseMaxIdleConns: getEnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		ClickHouseConnMaxLife:  getEnvDuration("CLICKHOUSE_CONN_MAX_LIFE", time.Hour),
		ClickHouseUsername:     getEnvString("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword:     getEnvString("CLICKHOUSE_PASSWORD", ""),
		ClickHouseDatabase:     getEnvString("CLICKHOUSE_DATABASE", "default"),

		SQLitePath:  getEnvString("SQLITE_PATH", "jobmart.db"),
		PostgresDSN: getEnvString("POSTGRES_DSN", ""),

		RawNamespace:       getEnvString("RAW_NAMESPACE", "jobmart_raw"),
		CleanNamespace:     getEnvString("CLEAN_NAMESPACE", "jobmart_clean"),
		AnalyticsNamespace: getEnvString("ANALYTICS_NAMESPACE", "jobmart_analytics"),

		CoercionPolicy: getEnvString("COERCION_POLICY", CoercionStrict),
		DimensionMerge: getEnvString("DIMENSION_MERGE", MergeFirstNonNull),

		RedisAddr:     getEnvString("REDIS_ADDR", ""),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CheckpointTTL: getEnvDuration("CHECKPOINT_TTL", 7*24*time.Hour),

		NATSURL:         getEnvString("NATS_URL", ""),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		OTelCollectorURL: getEnvString("OTEL_COLLECTOR_URL", ""),

		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "production"),
	}

	return config, nil
}

// Validate rejects unknown enumerations and impossible sizes.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendClickHouse, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.InvalidInput("POSTGRES_DSN is required for the postgres backend", nil)
		}
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown store backend %q", c.StoreBackend), nil)
	}

	switch c.CoercionPolicy {
	case CoercionStrict, CoercionLenient:
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown coercion policy %q", c.CoercionPolicy), nil)
	}

	switch c.DimensionMerge {
	case MergeFirstNonNull, MergeMostComplete:
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown dimension merge policy %q", c.DimensionMerge), nil)
	}

	if c.InsertBatchSize <= 0 {
		return errors.InvalidInput("INSERT_BATCH_SIZE must be positive", nil)
	}
	if c.LoadConcurrency <= 0 {
		return errors.InvalidInput("LOAD_CONCURRENCY must be positive", nil)
	}
	if c.RawNamespace == "" || c.CleanNamespace == "" || c.AnalyticsNamespace == "" {
		return errors.InvalidInput("namespaces must not be empty", nil)
	}
	return nil
}

// Namespaces maps the logical stage namespaces to physical names.
func (c *Config) Namespaces() map[string]string {
	return map[string]string{
		"raw":       c.RawNamespace,
		"clean":     c.CleanNamespace,
		"analytics": c.AnalyticsNamespace,
	}
}

// IsGCS reports whether DataSource points at a Cloud Storage prefix.
func (c *Config) IsGCS() bool {
	return strings.HasPrefix(c.DataSource, "gs://")
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
