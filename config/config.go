package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// R2Config is optional; the results archive is disabled when Enabled() is false.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	LogLevel     slog.Level

	DebateServiceURL   string
	DebateServiceToken string
	JudgeServiceURL    string
	BeltWebhookURL     string
	WebhookSecretHash  string

	SweepInterval   time.Duration
	MaxCascadeDepth int

	R2             R2Config
	AllowedOrigins []string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	level, err := parseLogLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	debateURL := os.Getenv("DEBATE_SERVICE_URL")
	if debateURL == "" {
		return nil, fmt.Errorf("DEBATE_SERVICE_URL environment variable is not set")
	}
	judgeURL := os.Getenv("JUDGE_SERVICE_URL")
	if judgeURL == "" {
		judgeURL = debateURL
	}

	webhookHash := os.Getenv("WEBHOOK_SECRET_HASH")
	if webhookHash == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET_HASH environment variable is not set")
	}

	sweep := time.Minute
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		sweep, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL environment variable: %w", err)
		}
		if sweep <= 0 {
			return nil, fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", sweep)
		}
	}

	depth, err := intEnv("MAX_CASCADE_DEPTH", 8)
	if err != nil {
		return nil, err
	}
	if depth < 1 {
		return nil, fmt.Errorf("MAX_CASCADE_DEPTH must be at least 1, got %d", depth)
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		LogLevel:           level,
		DebateServiceURL:   strings.TrimRight(debateURL, "/"),
		DebateServiceToken: os.Getenv("DEBATE_SERVICE_TOKEN"),
		JudgeServiceURL:    strings.TrimRight(judgeURL, "/"),
		BeltWebhookURL:     os.Getenv("BELT_WEBHOOK_URL"),
		WebhookSecretHash:  webhookHash,
		SweepInterval:      sweep,
		MaxCascadeDepth:    depth,
		R2: R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		},
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
	}

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", raw)
}

func splitList(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
