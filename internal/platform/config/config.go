package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultDatabaseHost    = "localhost"
	defaultDatabasePort    = "5432"
	defaultDatabaseSSLMode = "disable"
	defaultProbeTimeout    = 5 * time.Second
	defaultFetchTimeout    = 5 * time.Second
	defaultMaxAttempts     = 3
	defaultBaseDelay       = time.Second
	defaultQueueMode       = "memory"
	defaultQueueBuffer     = 64
	defaultWorkerCount     = 4
	defaultSMTPPort        = "25"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Queue    QueueConfig
	SMTP     SMTPConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig stores PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// ImportConfig bounds the catalog import pipeline.
type ImportConfig struct {
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
	MaxAttempts  int
	BaseDelay    time.Duration
}

// QueueConfig selects and parameterises the import job queue.
type QueueConfig struct {
	// Mode is "memory" for the in-process queue or "pubsub" for Google Pub/Sub.
	Mode         string
	Buffer       int
	WorkerCount  int
	ProjectID    string
	Topic        string
	Subscription string
}

// SMTPConfig configures the fire-and-forget notification sender.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Enabled reports whether notifications should be sent at all.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			Host:     stringWithDefault(lookup, "API_DB_HOST", defaultDatabaseHost),
			Port:     stringWithDefault(lookup, "API_DB_PORT", defaultDatabasePort),
			User:     stringWithDefault(lookup, "API_DB_USER", ""),
			Password: stringWithDefault(lookup, "API_DB_PASSWORD", ""),
			Name:     stringWithDefault(lookup, "API_DB_NAME", ""),
			SSLMode:  stringWithDefault(lookup, "API_DB_SSLMODE", defaultDatabaseSSLMode),
		},
		Import: ImportConfig{
			ProbeTimeout: durationWithDefault(lookup, "API_IMPORT_PROBE_TIMEOUT", defaultProbeTimeout),
			FetchTimeout: durationWithDefault(lookup, "API_IMPORT_FETCH_TIMEOUT", defaultFetchTimeout),
			MaxAttempts:  intWithDefault(lookup, "API_IMPORT_MAX_ATTEMPTS", defaultMaxAttempts),
			BaseDelay:    durationWithDefault(lookup, "API_IMPORT_BASE_DELAY", defaultBaseDelay),
		},
		Queue: QueueConfig{
			Mode:         strings.ToLower(stringWithDefault(lookup, "API_QUEUE_MODE", defaultQueueMode)),
			Buffer:       intWithDefault(lookup, "API_QUEUE_BUFFER", defaultQueueBuffer),
			WorkerCount:  intWithDefault(lookup, "API_QUEUE_WORKERS", defaultWorkerCount),
			ProjectID:    stringWithDefault(lookup, "API_QUEUE_PROJECT_ID", ""),
			Topic:        stringWithDefault(lookup, "API_QUEUE_TOPIC", ""),
			Subscription: stringWithDefault(lookup, "API_QUEUE_SUBSCRIPTION", ""),
		},
		SMTP: SMTPConfig{
			Host:     stringWithDefault(lookup, "API_SMTP_HOST", ""),
			Port:     stringWithDefault(lookup, "API_SMTP_PORT", defaultSMTPPort),
			Username: stringWithDefault(lookup, "API_SMTP_USERNAME", ""),
			Password: stringWithDefault(lookup, "API_SMTP_PASSWORD", ""),
			From:     stringWithDefault(lookup, "API_SMTP_FROM", ""),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Database.User == "" {
		missing = append(missing, "Database.User")
	}
	if cfg.Database.Name == "" {
		missing = append(missing, "Database.Name")
	}
	if cfg.Import.MaxAttempts <= 0 {
		missing = append(missing, "Import.MaxAttempts")
	}
	if cfg.Import.BaseDelay <= 0 {
		missing = append(missing, "Import.BaseDelay")
	}
	switch cfg.Queue.Mode {
	case "memory":
	case "pubsub":
		if cfg.Queue.ProjectID == "" {
			missing = append(missing, "Queue.ProjectID")
		}
		if cfg.Queue.Topic == "" {
			missing = append(missing, "Queue.Topic")
		}
		if cfg.Queue.Subscription == "" {
			missing = append(missing, "Queue.Subscription")
		}
	default:
		missing = append(missing, "Queue.Mode")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
