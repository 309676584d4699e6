package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration for the API service.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cashfree  CashfreeConfig
	Files     FilesConfig
	Business  BusinessConfig
	Sweeper   SweeperConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type HTTPConfig struct {
	Port          int
	ShutdownGrace int
}

type DatabaseConfig struct {
	URL            string
	AutoMigrate    bool
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	CacheTTL time.Duration
}

type CashfreeConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	NotifyURL    string
}

type FilesConfig struct {
	StagingDir string
	OrdersDir  string
}

// BusinessConfig carries the shop-level knobs: the local timezone drives
// delivery estimates and the payment cutoff.
type BusinessConfig struct {
	Timezone string
	Currency string
}

type SweeperConfig struct {
	Interval time.Duration
	MinAge   time.Duration
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort       = 8080
	defaultShutdownGrace  = 15
	defaultMigrationsPath = "migrations"
	defaultAutoMigrate    = true
	defaultStagingDir     = "data/staging"
	defaultOrdersDir      = "data/orders"
	defaultTimezone       = "Asia/Kolkata"
	defaultCurrency       = "INR"
	defaultSweepInterval  = 5 * time.Minute
	defaultSweepMinAge    = 30 * time.Minute
	defaultCacheTTL       = 30 * time.Minute
	defaultServiceName    = "printshop-api"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultOTelSampleRate = 1.0
)

// Load reads configuration from the environment, applying defaults when
// needed. A .env file in the working directory is folded in first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	sweeperCfg, err := loadSweeperConfig()
	if err != nil {
		return nil, fmt.Errorf("loading sweeper config: %w", err)
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, fmt.Errorf("loading redis config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	return &Config{
		HTTP:      httpCfg,
		Database:  loadDatabaseConfig(),
		Redis:     redisCfg,
		Cashfree:  loadCashfreeConfig(),
		Files:     loadFilesConfig(),
		Business:  loadBusinessConfig(),
		Sweeper:   sweeperCfg,
		Telemetry: telCfg,
		Service:   loadServiceConfig(),
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port := defaultHTTPPort
	if value, ok := os.LookupEnv("API_HTTP_PORT"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_HTTP_PORT: %w", err)
		}
		port = parsed
	}

	shutdownGrace := defaultShutdownGrace
	if value, ok := os.LookupEnv("API_SHUTDOWN_GRACE_SECONDS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_SHUTDOWN_GRACE_SECONDS: %w", err)
		}
		shutdownGrace = parsed
	}

	return HTTPConfig{
		Port:          port,
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadDatabaseConfig() DatabaseConfig {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	autoMigrate := defaultAutoMigrate
	if value, ok := os.LookupEnv("AUTO_MIGRATE"); ok {
		autoMigrate = value == "true"
	}

	migrationsPath := getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath)

	return DatabaseConfig{
		URL:            databaseURL,
		AutoMigrate:    autoMigrate,
		MigrationsPath: migrationsPath,
	}
}

func loadRedisConfig() (RedisConfig, error) {
	ttl := defaultCacheTTL
	if value, ok := os.LookupEnv("REDIS_CACHE_TTL"); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return RedisConfig{}, fmt.Errorf("invalid REDIS_CACHE_TTL: %w", err)
		}
		ttl = parsed
	}

	// An empty address disables the cart mirror entirely.
	return RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		CacheTTL: ttl,
	}, nil
}

func loadCashfreeConfig() CashfreeConfig {
	return CashfreeConfig{
		BaseURL:      os.Getenv("CASHFREE_BASE_URL"),
		ClientID:     os.Getenv("CASHFREE_CLIENT_ID"),
		ClientSecret: os.Getenv("CASHFREE_CLIENT_SECRET"),
		ReturnURL:    os.Getenv("CASHFREE_RETURN_URL"),
		NotifyURL:    os.Getenv("CASHFREE_NOTIFY_URL"),
	}
}

func loadFilesConfig() FilesConfig {
	return FilesConfig{
		StagingDir: getEnvOrDefault("FILES_STAGING_DIR", defaultStagingDir),
		OrdersDir:  getEnvOrDefault("FILES_ORDERS_DIR", defaultOrdersDir),
	}
}

func loadBusinessConfig() BusinessConfig {
	return BusinessConfig{
		Timezone: getEnvOrDefault("SHOP_TIMEZONE", defaultTimezone),
		Currency: getEnvOrDefault("SHOP_CURRENCY", defaultCurrency),
	}
}

func loadSweeperConfig() (SweeperConfig, error) {
	interval := defaultSweepInterval
	if value, ok := os.LookupEnv("SWEEP_INTERVAL"); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return SweeperConfig{}, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
		}
		interval = parsed
	}

	minAge := defaultSweepMinAge
	if value, ok := os.LookupEnv("SWEEP_MIN_AGE"); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return SweeperConfig{}, fmt.Errorf("invalid SWEEP_MIN_AGE: %w", err)
		}
		minAge = parsed
	}

	return SweeperConfig{
		Interval: interval,
		MinAge:   minAge,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", defaultLogLevel)
	otelEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	enableTracing := getBoolEnv("OTEL_ENABLE_TRACING", true)
	enableMetrics := getBoolEnv("OTEL_ENABLE_METRICS", true)

	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      logLevel,
		OTelEndpoint:  otelEndpoint,
		EnableTracing: enableTracing,
		EnableMetrics: enableMetrics,
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "printshop")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "25")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "5")
	maxLifetime := getEnvOrDefault("DB_MAX_CONN_LIFETIME", "5m")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s&pool_max_conn_lifetime=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns, maxLifetime,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}
