package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// Config holds everything main needs to wire the service. It is built once
// at startup and passed down explicitly.
type Config struct {
	Env               string
	Port              string
	StoreDriver       string
	MongoURI          string
	MongoDatabase     string
	StoreTimeout      time.Duration
	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	ActorCacheTTL     time.Duration
	JWTSecret         string
	AllowedOrigins    []string
	VerifyAssignee    bool
	TransitionRetries int
}

// IsProduction reports whether GO_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults and validating.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Env:           get("GO_ENV", "development"),
		Port:          get("PORT", "5000"),
		StoreDriver:   strings.ToLower(get("STORE_DRIVER", StoreDriverMongo)),
		MongoURI:      get("MONGODB_URI", ""),
		MongoDatabase: get("MONGODB_DATABASE", "citycare"),
		RedisAddress:  get("REDIS_ADDRESS", ""),
		RedisPassword: getenv("REDIS_PASSWORD"),
		JWTSecret:     getenv("JWT_SECRET"),
	}

	var err error
	if cfg.StoreTimeout, err = parseDuration("STORE_TIMEOUT", get("STORE_TIMEOUT", "10s")); err != nil {
		return nil, err
	}
	if cfg.ActorCacheTTL, err = parseDuration("ACTOR_CACHE_TTL", get("ACTOR_CACHE_TTL", "5m")); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("config: REDIS_DB: %w", err)
	}
	if cfg.TransitionRetries, err = strconv.Atoi(get("TRANSITION_RETRIES", "3")); err != nil {
		return nil, fmt.Errorf("config: TRANSITION_RETRIES: %w", err)
	}
	if cfg.VerifyAssignee, err = strconv.ParseBool(get("VERIFY_ASSIGNEE", "false")); err != nil {
		return nil, fmt.Errorf("config: VERIFY_ASSIGNEE: %w", err)
	}

	cfg.AllowedOrigins = allowedOrigins(getenv("FRONTEND_URL"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("config: please define the MONGODB_URI environment variable")
		}
	case StoreDriverMemory:
		if c.VerifyAssignee {
			return fmt.Errorf("config: VERIFY_ASSIGNEE requires STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET environment variable is not set")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("config: STORE_TIMEOUT must be positive")
	}
	if c.TransitionRetries < 1 {
		return fmt.Errorf("config: TRANSITION_RETRIES must be at least 1")
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

// allowedOrigins combines FRONTEND_URL (comma separated) with the local dev
// server origins.
func allowedOrigins(frontend string) []string {
	origins := make([]string, 0, 3)
	for _, o := range strings.Split(frontend, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return append(origins, "http://localhost:5173", "http://localhost:5174")
}
