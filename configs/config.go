package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	DataSource DataSourceConfig
	Database   DatabaseConfig
	Supabase   SupabaseConfig
	JWT        JWTConfig
	Redis      RedisConfig
	Log        LogConfig
	Cache      CacheConfig
	Preload    PreloadConfig
	Navigation NavigationConfig
	Breaker    BreakerConfig
	Session    SessionConfig
	Scheduler  SchedulerConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Host           string
	Port           string `validate:"required"`
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

const (
	DataSourceSupabase = "supabase"
	DataSourcePostgres = "postgres"
)

type DataSourceConfig struct {
	Kind string `validate:"oneof=supabase postgres"`
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int `validate:"min=1"`
	MaxIdleConns    int `validate:"min=0"`
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
}

// JWTConfig verifies access tokens issued by the auth backend.
type JWTConfig struct {
	Secret   string `validate:"required"`
	Audience string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string `validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `validate:"oneof=json text"` // json or text
}

type CacheConfig struct {
	DefaultTTL     time.Duration `validate:"gt=0"`
	CoalesceMisses bool
}

type PreloadConfig struct {
	JobDelay time.Duration `validate:"min=0"`
}

type NavigationConfig struct {
	PolicyFile  string
	WatchPolicy bool
}

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration `validate:"gt=0"`
	FailureThreshold uint32        `validate:"min=1"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `validate:"gt=0"`
	WarmOnStart bool
}

type SchedulerConfig struct {
	SweepSpec string `validate:"required"`
	EvictSpec string `validate:"required"`
}

// RateLimitConfig throttles cache maintenance endpoints per user. Counters
// live in Redis, so limiting is off when Redis is disabled.
type RateLimitConfig struct {
	RequestsPerWindow int           `validate:"min=1"`
	BurstMultiplier   float64       `validate:"gte=1"`
	Window            time.Duration `validate:"gt=0"`
	KeyPrefix         string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		DataSource: DataSourceConfig{
			Kind: getEnv("DATA_SOURCE", DataSourceSupabase),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "volunteer_hub"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		},
		Supabase: SupabaseConfig{
			URL:            getEnv("SUPABASE_URL", ""),
			ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			Audience: getEnv("JWT_AUDIENCE", "authenticated"),
		},
		Redis: RedisConfig{
			Enabled:      getBoolEnv("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			Prefix:       getEnv("REDIS_KEY_PREFIX", "vhub"),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			DefaultTTL:     getDurationEnv("CACHE_DEFAULT_TTL", 5*time.Minute),
			CoalesceMisses: getBoolEnv("CACHE_COALESCE_MISSES", false),
		},
		Preload: PreloadConfig{
			JobDelay: getDurationEnv("PRELOAD_JOB_DELAY", 100*time.Millisecond),
		},
		Navigation: NavigationConfig{
			PolicyFile:  getEnv("NAVIGATION_POLICY_FILE", ""),
			WatchPolicy: getBoolEnv("NAVIGATION_POLICY_WATCH", true),
		},
		Breaker: BreakerConfig{
			MaxRequests:      uint32(getIntEnv("BREAKER_MAX_REQUESTS", 1)),
			Interval:         getDurationEnv("BREAKER_INTERVAL", time.Minute),
			Timeout:          getDurationEnv("BREAKER_TIMEOUT", 30*time.Second),
			FailureThreshold: uint32(getIntEnv("BREAKER_FAILURE_THRESHOLD", 5)),
		},
		Session: SessionConfig{
			IdleTimeout: getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			WarmOnStart: getBoolEnv("SESSION_WARM_ON_START", true),
		},
		Scheduler: SchedulerConfig{
			SweepSpec: getEnv("CACHE_SWEEP_SCHEDULE", "@every 5m"),
			EvictSpec: getEnv("SESSION_EVICT_SCHEDULE", "@every 1m"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getIntEnv("RATE_LIMIT_CACHE_REQUESTS", 10),
			BurstMultiplier:   getFloatEnv("RATE_LIMIT_BURST_MULTIPLIER", 1.5),
			Window:            getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:         getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:cache"),
		},
	}

	// Build database DSN
	cfg.Database.DSN = getEnv("DATABASE_URL", fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and the settings each data source needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.DataSource.Kind == DataSourceSupabase && (c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "") {
		return fmt.Errorf("invalid configuration: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase data source")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
