package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AdapterPostgres = "postgres"
	AdapterMemory   = "memory"
)

type Config struct {
	Port            string
	DBAdapter       string
	DatabaseURL     string
	RunMigrations   bool
	JWTSecret       string
	SessionTTL      time.Duration
	GoogleAudience  string
	AllowOrigins    []string
	TrustedProxies  []string
	LogLevel        string
	LogstashTCPAddr string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	FrontendBaseURL string
	SwaggerSpecPath string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool

	PasswordResetTTL        time.Duration
	PasswordResetRatePerMin int
	LoginRatePerMin         int
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	adapter := strings.ToLower(getenv("DB_ADAPTER", AdapterPostgres))
	var databaseURL string
	if adapter == AdapterPostgres {
		databaseURL = must("DATABASE_URL")
	}

	return Config{
		Port:                    getenv("PORT", "8080"),
		DBAdapter:               adapter,
		DatabaseURL:             databaseURL,
		RunMigrations:           getenv("RUN_MIGRATIONS", "true") == "true",
		JWTSecret:               must("JWT_SECRET"),
		SessionTTL:              duration("SESSION_TTL", 24*time.Hour),
		GoogleAudience:          getenv("GOOGLE_AUDIENCE", ""),
		AllowOrigins:            splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		TrustedProxies:          list(getenv("TRUSTED_PROXIES", "")),
		LogLevel:                getenv("LOG_LEVEL", "info"),
		LogstashTCPAddr:         getenv("LOGSTASH_TCP_ADDR", ""),
		RedisAddr:               getenv("REDIS_ADDR", ""),
		RedisPassword:           getenv("REDIS_PASSWORD", ""),
		RedisDB:                 integer("REDIS_DB", 0),
		FrontendBaseURL:         strings.TrimRight(getenv("FRONTEND_BASE_URL", "http://localhost:3000"), "/"),
		SwaggerSpecPath:         getenv("SWAGGER_SPEC_PATH", "docs/swagger.yaml"),
		SMTPHost:                getenv("SMTP_HOST", ""),
		SMTPPort:                getenv("SMTP_PORT", "587"),
		SMTPUsername:            getenv("SMTP_USERNAME", ""),
		SMTPPassword:            getenv("SMTP_PASSWORD", ""),
		SMTPFrom:                getenv("SMTP_FROM", ""),
		SMTPUseTLS:              getenv("SMTP_USE_TLS", "false") == "true",
		PasswordResetTTL:        duration("PASSWORD_RESET_TTL", time.Hour),
		PasswordResetRatePerMin: integer("PASSWORD_RESET_RATE_PER_MIN", 5),
		LoginRatePerMin:         integer("LOGIN_RATE_PER_MIN", 20),
	}
}

func splitAndTrim(input string) []string {
	out := list(input)
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func list(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func duration(k string, d time.Duration) time.Duration {
	raw := os.Getenv(k)
	if raw == "" {
		return d
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("Warning: invalid %s %q, using %s", k, raw, d)
		return d
	}
	return v
}

func integer(k string, d int) int {
	raw := os.Getenv(k)
	if raw == "" {
		return d
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Printf("Warning: invalid %s %q, using %d", k, raw, d)
		return d
	}
	return v
}
