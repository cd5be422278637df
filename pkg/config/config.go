package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Auth modes.
const (
	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

type Config struct {
	Port        string
	Env         string
	LogLevel    string
	MetricsPort string

	MongoURI                string
	MongoDB                 string
	PostgresConnStr         string
	FirebaseCredentialsPath string
	JWTSecret               string
	AuthMode                string

	RedditClientID      string
	RedditClientSecret  string
	RedditUsername      string
	RedditPassword      string
	RedditUserAgent     string
	RedditRatePerMinute int

	RedisAddr      string        // empty disables the search cache
	SearchCacheTTL time.Duration // 0 disables the search cache

	DiscoveryConcurrency   int
	DiscoverySearchTimeout time.Duration
	RequestTimeout         time.Duration
	ShutdownTimeout        time.Duration

	BrandLimit int // max brands per owner, 0 = unlimited
}

// Load reads the environment, after merging a .env file when one exists.
func Load() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),

		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDB:                 getEnv("MONGO_DB", "searches"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		AuthMode:                strings.ToLower(getEnv("AUTH_MODE", AuthFirebase)),

		RedditClientID:      getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret:  getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditUsername:      getEnv("REDDIT_USERNAME", ""),
		RedditPassword:      getEnv("REDDIT_PASSWORD", ""),
		RedditUserAgent:     getEnv("REDDIT_USER_AGENT", ""),
		RedditRatePerMinute: getEnvInt("REDDIT_RATE_PER_MINUTE", 60),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		SearchCacheTTL: getEnvDuration("SEARCH_CACHE_TTL", 5*time.Minute),

		DiscoveryConcurrency:   getEnvInt("DISCOVERY_CONCURRENCY", 4),
		DiscoverySearchTimeout: getEnvDuration("DISCOVERY_SEARCH_TIMEOUT", 10*time.Second),
		RequestTimeout:         getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:        getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		BrandLimit: getEnvInt("BRAND_LIMIT", 1),
	}
}

// IsDevelopment reports whether logs should be human-readable.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev" || c.Env == "local"
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}

	require("MONGO_URI", c.MongoURI)
	require("POSTGRES_CONN_STR", c.PostgresConnStr)
	require("REDDIT_CLIENT_ID", c.RedditClientID)
	require("REDDIT_CLIENT_SECRET", c.RedditClientSecret)
	require("REDDIT_USERNAME", c.RedditUsername)
	require("REDDIT_PASSWORD", c.RedditPassword)

	var errs []error
	switch c.AuthMode {
	case AuthFirebase:
		require("FIREBASE_CREDENTIALS_PATH", c.FirebaseCredentialsPath)
	case AuthJWT:
		require("JWT_SECRET", c.JWTSecret)
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthFirebase, AuthJWT, c.AuthMode))
	}

	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if c.BrandLimit < 0 {
		errs = append(errs, errors.New("BRAND_LIMIT must be >= 0"))
	}
	if c.DiscoveryConcurrency < 1 {
		errs = append(errs, errors.New("DISCOVERY_CONCURRENCY must be >= 1"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
