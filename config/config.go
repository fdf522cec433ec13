package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	CORSAllowedOrigins      []string
	ActivationSweepInterval time.Duration
	ApplySchema             bool

	// Архив решений по конфликтам. Пустой R2AccountID отключает архив.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
}

// ArchiveEnabled сообщает, задана ли конфигурация R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из произвольного источника переменных.
func FromEnv(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	interval := time.Minute
	if raw := getenv("ACTIVATION_SWEEP_INTERVAL"); raw != "" {
		interval, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ACTIVATION_SWEEP_INTERVAL environment variable: %w", err)
		}
		if interval < time.Second {
			return nil, fmt.Errorf("ACTIVATION_SWEEP_INTERVAL must be at least 1s, got %s", interval)
		}
	}

	applySchema := false
	if raw := getenv("APPLY_SCHEMA"); raw != "" {
		applySchema, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid APPLY_SCHEMA environment variable: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:             dbURL,
		JWTSecretKey:            jwtKey,
		ServerPort:              port,
		CORSAllowedOrigins:      splitList(getenv("CORS_ALLOWED_ORIGINS")),
		ActivationSweepInterval: interval,
		ApplySchema:             applySchema,
		R2AccountID:             getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:           getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:       getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:            getenv("R2_BUCKET_NAME"),
	}

	r2 := []string{cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return nil, fmt.Errorf("R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME must be set together")
	}

	return cfg, nil
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
