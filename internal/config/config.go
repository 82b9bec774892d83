package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jaekwang-park/taskscribe/internal/session"
)

var validEnvs = map[string]bool{
	"local": true,
	"alpha": true,
	"beta":  true,
	"prod":  true,
}

var validDrivers = map[string]bool{
	"postgres": true,
	"badger":   true,
}

type Config struct {
	ServerPort        string
	AppEnv            string
	LogLevel          string
	StorageDriver     string
	DB                DBConfig
	Badger            BadgerConfig
	Auth              AuthConfig
	RedisURL          string
	CORSAllowedOrigin string
}

type DBConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

func (d DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     d.Name,
		RawQuery: fmt.Sprintf("sslmode=%s", url.QueryEscape(d.SSLMode)),
	}
	return u.String()
}

// BadgerConfig selects the embedded store. An empty Path keeps data in memory.
type BadgerConfig struct {
	Path string
}

type AuthConfig struct {
	JWTSecret string
	// SSMParameter names a SecureString holding the secret. Used when
	// JWTSecret is empty.
	SSMParameter string
	AWSRegion    string
	BcryptCost   int
	RateLimit    int
}

func (c Config) ParseLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid SERVER_PORT %q: %w", c.ServerPort, err)
	}
	if !validEnvs[c.AppEnv] {
		return fmt.Errorf("invalid APP_ENV %q: must be one of local, alpha, beta, prod", c.AppEnv)
	}
	if !validDrivers[c.StorageDriver] {
		return fmt.Errorf("invalid STORAGE_DRIVER %q: must be postgres or badger", c.StorageDriver)
	}
	if c.Auth.JWTSecret == "" && c.Auth.SSMParameter == "" {
		return fmt.Errorf("JWT_SECRET or JWT_SECRET_SSM_PARAMETER is required")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < session.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", session.MinSecretLength, len(c.Auth.JWTSecret))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("invalid BCRYPT_COST %d: must be between 4 and 31", c.Auth.BcryptCost)
	}
	if c.Auth.RateLimit < 0 {
		return fmt.Errorf("invalid AUTH_RATE_LIMIT %d: must not be negative", c.Auth.RateLimit)
	}
	return nil
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Variables already set win. Missing files
// are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func Load() Config {
	return Config{
		ServerPort:    envOrDefault("SERVER_PORT", "8080"),
		AppEnv:        envOrDefault("APP_ENV", "local"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		StorageDriver: strings.ToLower(envOrDefault("STORAGE_DRIVER", "postgres")),
		DB: DBConfig{
			Host:        envOrDefault("DB_HOST", "localhost"),
			Port:        envOrDefault("DB_PORT", "5432"),
			User:        envOrDefault("DB_USER", "taskscribe"),
			Password:    envOrDefault("DB_PASSWORD", "taskscribe"),
			Name:        envOrDefault("DB_NAME", "taskscribe"),
			SSLMode:     envOrDefault("DB_SSLMODE", "disable"),
			AutoMigrate: strings.EqualFold(envOrDefault("DB_AUTO_MIGRATE", "false"), "true"),
		},
		Badger: BadgerConfig{
			Path: os.Getenv("BADGER_PATH"),
		},
		Auth: AuthConfig{
			JWTSecret:    os.Getenv("JWT_SECRET"),
			SSMParameter: os.Getenv("JWT_SECRET_SSM_PARAMETER"),
			AWSRegion:    envOrDefault("AWS_REGION", "ap-northeast-1"),
			BcryptCost:   envIntOrDefault("BCRYPT_COST", 10),
			RateLimit:    envIntOrDefault("AUTH_RATE_LIMIT", 20),
		},
		RedisURL:          os.Getenv("REDIS_URL"),
		CORSAllowedOrigin: os.Getenv("CORS_ALLOWED_ORIGIN"),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envIntOrDefault returns -1 for a value that is set but not an integer, so
// Validate rejects it instead of silently using the default.
func envIntOrDefault(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
