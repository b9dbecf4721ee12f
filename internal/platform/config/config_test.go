package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_DB_USER": "retail",
		"API_DB_NAME": "retail_orders",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("expected default db host, got %s", cfg.Database.Host)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Errorf("expected default sslmode disable, got %s", cfg.Database.SSLMode)
	}
	if cfg.Import.ProbeTimeout != 5*time.Second {
		t.Errorf("unexpected probe timeout: %s", cfg.Import.ProbeTimeout)
	}
	if cfg.Import.FetchTimeout != 5*time.Second {
		t.Errorf("unexpected fetch timeout: %s", cfg.Import.FetchTimeout)
	}
	if cfg.Import.MaxAttempts != 3 {
		t.Errorf("unexpected max attempts: %d", cfg.Import.MaxAttempts)
	}
	if cfg.Import.BaseDelay != time.Second {
		t.Errorf("unexpected base delay: %s", cfg.Import.BaseDelay)
	}
	if cfg.Queue.Mode != "memory" {
		t.Errorf("expected default queue mode memory, got %s", cfg.Queue.Mode)
	}
	if cfg.Queue.WorkerCount != 4 {
		t.Errorf("unexpected default worker count: %d", cfg.Queue.WorkerCount)
	}
	if cfg.SMTP.Enabled() {
		t.Errorf("expected SMTP disabled without a host")
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error when database settings missing")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	want := map[string]bool{"Database.User": false, "Database.Name": false}
	for _, field := range fields {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected %s to be reported, got %v", field, fields)
		}
	}
}

func TestLoadPubSubModeRequiresSettings(t *testing.T) {
	env := map[string]string{
		"API_DB_USER":    "retail",
		"API_DB_NAME":    "retail_orders",
		"API_QUEUE_MODE": "pubsub",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected error when pubsub settings missing")
	}

	env["API_QUEUE_PROJECT_ID"] = "retail-dev"
	env["API_QUEUE_TOPIC"] = "catalog-imports"
	env["API_QUEUE_SUBSCRIPTION"] = "catalog-imports-worker"
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Queue.Mode != "pubsub" {
		t.Errorf("expected pubsub mode, got %s", cfg.Queue.Mode)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "API_DB_USER=filed\nAPI_DB_NAME=filed_db\n# comment\nexport API_SERVER_PORT=9090\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.User != "filed" {
		t.Errorf("expected user from .env, got %s", cfg.Database.User)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected exported port from .env, got %s", cfg.Server.Port)
	}
}

func TestEnvMapTakesPrecedenceOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("API_DB_USER=from_file\nAPI_DB_NAME=db\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(envPath),
		WithEnvMap(map[string]string{"API_DB_USER": "from_map"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.User != "from_map" {
		t.Errorf("expected env map to win, got %s", cfg.Database.User)
	}
}

func TestDatabaseDSN(t *testing.T) {
	dsn := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "svc",
		Password: "secret",
		Name:     "catalog",
		SSLMode:  "require",
	}.DSN()
	want := "host=db.internal port=5433 user=svc password=secret dbname=catalog sslmode=require"
	if dsn != want {
		t.Errorf("unexpected dsn: %s", dsn)
	}
}
