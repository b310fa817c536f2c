package config

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type BlobConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
}

type StorageConfig struct {
	// InlineThreshold is the largest content size (bytes) kept inline in the
	// file row. Anything bigger goes to the blob store.
	InlineThreshold int64
}

type GitHubConfig struct {
	Token   string
	Owner   string
	BaseURL string
}

type SandboxConfig struct {
	// WorkdirRoot is where per-project sandbox workspaces live.
	WorkdirRoot string
	Shell       string
	BootBackoff time.Duration
	PortBase    int
}

type LogConfig struct {
	Level  string
	Format string
}

type Config struct {
	DB_URL      string
	Port        string
	MetricsAddr string
	JWTSecret   string
	Environment string
	CorsConfig  cors.Options
	Blob        BlobConfig
	Storage     StorageConfig
	GitHub      GitHubConfig
	Sandbox     SandboxConfig
	Log         LogConfig
}

var Envs = initConfig()

func initConfig() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	return Config{
		DB_URL:      getEnv("DB_URL", ""),
		Port:        getEnv("PORT", "8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		JWTSecret:   getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		Environment: getEnv("ENV", "development"),
		CorsConfig:  CorsConfig(),
		Blob: BlobConfig{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Region:          getEnv("R2_REGION", "auto"),
		},
		Storage: StorageConfig{
			InlineThreshold: getEnvInt64("STORAGE_INLINE_THRESHOLD", 100*1024),
		},
		GitHub: GitHubConfig{
			Token:   getEnv("GITHUB_TOKEN", ""),
			Owner:   getEnv("GITHUB_OWNER", ""),
			BaseURL: getEnv("GITHUB_API_URL", "https://api.github.com"),
		},
		Sandbox: SandboxConfig{
			WorkdirRoot: getEnv("SANDBOX_WORKDIR", "/tmp/flashio-sandboxes"),
			Shell:       getEnv("SANDBOX_SHELL", "/bin/bash"),
			BootBackoff: time.Duration(getEnvInt64("SANDBOX_BOOT_BACKOFF_MS", 500)) * time.Millisecond,
			PortBase:    int(getEnvInt64("SANDBOX_PORT_BASE", 3000)),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}

func CorsConfig() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://flashio.vercel.app"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
