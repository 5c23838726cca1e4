package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_FileSizeLimit(t *testing.T) {
	tmpDir := t.TempDir()

	// Create a large file (> 1MB)
	largeFile := filepath.Join(tmpDir, "large.yaml")
	data := strings.Repeat("x: value\n", 200000) // ~1.6MB
	err := os.WriteFile(largeFile, []byte(data), 0600)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	_, err = LoadConfig(largeFile)
	if err == nil {
		t.Error("expected error for large file")
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected 'too large' error, got: %v", err)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()

	validConfig := `
backend:
  url: https://platform.example.edu/api
  auth_token: test-token
  request_timeout: 30s
chat:
  send_interval: 2s
redis:
  addr: localhost:6379
`

	validFile := filepath.Join(tmpDir, "valid.yaml")
	err := os.WriteFile(validFile, []byte(validConfig), 0600)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cfg, err := LoadConfig(validFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.URL != "https://platform.example.edu/api" {
		t.Errorf("Backend.URL = %s", cfg.Backend.URL)
	}
	if cfg.Backend.RequestTimeout != 30*time.Second {
		t.Errorf("Backend.RequestTimeout = %v", cfg.Backend.RequestTimeout)
	}
	if cfg.Chat.SendInterval != 2*time.Second {
		t.Errorf("Chat.SendInterval = %v", cfg.Chat.SendInterval)
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	minimal := "backend:\n  url: http://localhost:8080\n"
	file := filepath.Join(tmpDir, "minimal.yaml")
	if err := os.WriteFile(file, []byte(minimal), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cfg, err := LoadConfig(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chat.SendInterval != time.Second {
		t.Errorf("default SendInterval = %v, want 1s", cfg.Chat.SendInterval)
	}
	if cfg.Observability.MetricsPort != 9090 {
		t.Errorf("default MetricsPort = %d, want 9090", cfg.Observability.MetricsPort)
	}
	if cfg.Observability.TraceExporter != "none" {
		t.Errorf("default TraceExporter = %q, want none", cfg.Observability.TraceExporter)
	}
}

func TestLoadConfig_EnvFallback(t *testing.T) {
	tmpDir := t.TempDir()

	file := filepath.Join(tmpDir, "empty.yaml")
	if err := os.WriteFile(file, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	t.Setenv("TUTORCHAT_BACKEND_URL", "http://env.example.edu")
	t.Setenv("TUTORCHAT_AUTH_TOKEN", "env-token")

	cfg, err := LoadConfig(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.URL != "http://env.example.edu" {
		t.Errorf("Backend.URL = %s, want env value", cfg.Backend.URL)
	}
	if cfg.Backend.AuthToken != "env-token" {
		t.Errorf("Backend.AuthToken = %s, want env value", cfg.Backend.AuthToken)
	}
}

func TestLoadConfig_NonexistentFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()

	invalidYAML := `
backend:
invalid yaml here: [[[
`

	invalidFile := filepath.Join(tmpDir, "invalid.yaml")
	err := os.WriteFile(invalidFile, []byte(invalidYAML), 0600)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	_, err = LoadConfig(invalidFile)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) { c.Backend.URL = "https://x.example.edu" }, false},
		{"missing url", func(c *Config) {}, true},
		{"bad scheme", func(c *Config) { c.Backend.URL = "ftp://x" }, true},
		{"bad exporter", func(c *Config) {
			c.Backend.URL = "http://x"
			c.Observability.TraceExporter = "jaeger"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
