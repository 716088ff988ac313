package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	LogFile  string

	// Remote transaction API
	RemoteAPIURL  string
	RemoteTimeout time.Duration

	// Supabase; when enabled it replaces the HTTP remote
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseTable      string
	UseSupabase        bool

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Local store
	StoreBackend  string
	StoreKey      string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Observability
	OTLPEndpoint string

	// Auth; an empty secret disables JWT checks
	JWTSecret string

	// Device bridges
	BatteryPollInterval time.Duration
	BatterySysfsPath    string
	CalendarAutoGrant   bool

	// HTTP API
	ListDefaultLimit int
	ListMaxLimit     int

	// Analytics reuse a loaded transaction list for this long; 0 disables.
	AnalyticsCacheTTL time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		RemoteAPIURL:  strings.TrimRight(getEnv("REMOTE_API_URL", "https://api.personalfinance.app"), "/"),
		RemoteTimeout: getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),

		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseTable:      getEnv("SUPABASE_TABLE", "transactions"),
		UseSupabase:        getEnvBool("USE_SUPABASE", false),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreSQLite)),
		StoreKey:      getEnv("STORE_KEY", "transactions"),
		SQLitePath:    getEnv("SQLITE_PATH", "./data/finance.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		BatteryPollInterval: getEnvDuration("BATTERY_POLL_INTERVAL", time.Minute),
		BatterySysfsPath:    getEnv("BATTERY_SYSFS_PATH", "/sys/class/power_supply"),
		CalendarAutoGrant:   getEnvBool("CALENDAR_AUTO_GRANT", true),

		ListDefaultLimit: getEnvInt("LIST_DEFAULT_LIMIT", 20),
		ListMaxLimit:     getEnvInt("LIST_MAX_LIMIT", 100),

		AnalyticsCacheTTL: getEnvDuration("ANALYTICS_CACHE_TTL", 15*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
