package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// JWT
	JWTSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiChatModel      string
	GeminiSuggestModel   string
	GeminiRequestsPerMin int
	GeminiConcurrentReqs int
	AdvisoryTimeout      time.Duration

	// Persistence
	StoreBackend       string // "memory" | "sqlite" | "postgres" | "redis"
	SQLitePath         string
	DatabaseURL        string
	RedisURL           string
	StoreEncryptionKey string

	// Uploads
	MaxUploadMB int

	// In-memory per-device state is dropped after this long without use.
	SurfaceIdleTTL time.Duration

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		JWTSecret:            mustGetEnv("JWT_SECRET"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiChatModel:      getEnvOrDefault("GEMINI_CHAT_MODEL", "gemini-3-pro-preview"),
		GeminiSuggestModel:   getEnvOrDefault("GEMINI_SUGGEST_MODEL", "gemini-3-flash-preview"),
		GeminiRequestsPerMin: getEnvAsIntOrDefault("GEMINI_REQUESTS_PER_MINUTE", 60),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		AdvisoryTimeout:      getEnvAsDurationOrDefault("ADVISORY_TIMEOUT", 90*time.Second),
		StoreBackend:         getEnvOrDefault("STORE_BACKEND", "sqlite"),
		SQLitePath:           getEnvOrDefault("SQLITE_PATH", "./data/lexconsul.db"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		StoreEncryptionKey:   getEnvOrDefault("STORE_ENCRYPTION_KEY", ""),
		MaxUploadMB:          getEnvAsIntOrDefault("MAX_UPLOAD_MB", 20),
		SurfaceIdleTTL:       getEnvAsDurationOrDefault("SURFACE_IDLE_TTL", 30*time.Minute),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if err := cfg.validate(); err != nil {
		panic(err.Error())
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	if c.GeminiConcurrentReqs < 1 {
		return fmt.Errorf("GEMINI_CONCURRENT_REQUESTS must be positive")
	}
	return nil
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
