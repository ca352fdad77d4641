package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string
	StoragePath string
	GeoIPDBPath string

	GenAPIKey     string
	GenBaseURL    string
	TextModel     string
	ImageModel    string
	VideoModel    string
	AudioModel    string
	PollInterval  time.Duration
	MaxPollTries  int
	WorkerSlots   int
	NotifyWebhook string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from the environment, reading optional .env
// files first, and applies defaults where needed.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		StoragePath: getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		GenAPIKey:     os.Getenv("GEN_API_KEY"),
		GenBaseURL:    getEnv("GEN_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		TextModel:     getEnv("TEXT_MODEL", "gemini-2.5-flash"),
		ImageModel:    getEnv("IMAGE_MODEL", "gemini-2.5-flash-image"),
		VideoModel:    getEnv("VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		AudioModel:    getEnv("AUDIO_MODEL", "speech-standard"),
		PollInterval:  time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 10)),
		MaxPollTries:  getEnvInt("MAX_POLL_ATTEMPTS", 60),
		WorkerSlots:   getEnvInt("WORKER_SLOTS", 4),
		NotifyWebhook: os.Getenv("NOTIFY_WEBHOOK_URL"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
