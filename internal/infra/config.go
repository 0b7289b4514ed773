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
	AppEnv           string
	Port             string
	DatabaseURL      string
	JWTSecret        string
	AutoMigrate      bool
	CORSOrigins      []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	// TrustedProxies lists proxy addresses or CIDRs allowed to set
	// X-Forwarded-For.
	TrustedProxies []string

	StorageDriver        string
	StoragePath          string
	StorageBaseURL       string
	ResourceBucket       string
	AssetBucket          string
	GCSCDNDomain         string
	StoragePublicBaseURL string

	GeminiAPIKey     string
	GeminiBaseURL    string
	BasicImageModel  string
	ProImageModel    string
	VideoModel       string
	ProviderTimeout  time.Duration
	RedisAddr        string
	WorkerMetricAddr string

	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	VideoPollInterval  time.Duration
	VideoMaxWait       time.Duration
	ReaperInterval     time.Duration
	ReaperMaxAge       time.Duration
	SourceMaxDimension int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// A .env file in the working directory is honoured when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AutoMigrate:      getEnvBool("AUTO_MIGRATE", false),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		TrustedProxies:   splitList(os.Getenv("TRUSTED_PROXIES")),

		StorageDriver:        strings.ToLower(getEnv("STORAGE_DRIVER", "filesystem")),
		StoragePath:          getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:       getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		ResourceBucket:       getEnv("RESOURCE_BUCKET", "resource"),
		AssetBucket:          getEnv("ASSET_BUCKET", "assets"),
		GCSCDNDomain:         os.Getenv("GCS_CDN_DOMAIN"),
		StoragePublicBaseURL: os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL"),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		BasicImageModel:  getEnv("GEMINI_BASIC_IMAGE_MODEL", "gemini-2.5-flash-image"),
		ProImageModel:    getEnv("GEMINI_PRO_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		VideoModel:       getEnv("GEMINI_VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		ProviderTimeout:  getEnvDuration("PROVIDER_TIMEOUT", 2*time.Minute),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		WorkerMetricAddr: os.Getenv("WORKER_METRICS_ADDR"),

		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		VideoPollInterval:  getEnvDuration("VIDEO_POLL_INTERVAL", 10*time.Second),
		VideoMaxWait:       getEnvDuration("VIDEO_MAX_WAIT", 20*time.Minute),
		ReaperInterval:     getEnvDuration("REAPER_INTERVAL", time.Minute),
		ReaperMaxAge:       getEnvDuration("REAPER_MAX_AGE", 30*time.Minute),
		SourceMaxDimension: getEnvInt("SOURCE_MAX_DIMENSION", 2048),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.StorageDriver {
	case "filesystem", "gcs":
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

// RequireJWTSecret reports an error when the API signing secret is missing.
// The worker does not authenticate requests and skips this check.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
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

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
