package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	JWTSecret string // Required: HS256 signing secret, at least 32 bytes

	DatabaseFile string        // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile   string        // Optional: path to the password hashing pepper file (default: ./pepper)
	BaseURL      string        // Optional: public URL used in emailed links (default: http://localhost:<port>)
	LoginTTL     time.Duration // Optional: login token lifetime (default: 24h)
	OTPTTL       time.Duration // Optional: password reset code lifetime (default: 5m)

	SMTPHost     string // Optional: when unset, outbound mail is logged instead of sent
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		JWTSecret:           os.Getenv("AUTH_JWT_SECRET"),
		DatabaseFile:        getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:          getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		BaseURL:             os.Getenv("AUTH_BASE_URL"),
		LoginTTL:            getEnvDurationOrDefault("AUTH_LOGIN_TTL", 0),
		OTPTTL:              getEnvDurationOrDefault("AUTH_OTP_TTL", 0),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPPort:            getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:        os.Getenv("SMTP_USERNAME"),
		SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:            os.Getenv("SMTP_FROM"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + strconv.Itoa(cfg.Port)
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
