package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
s3:
  bucket: test-pics
  public_base_url: https://cdn.example.com
webhooks:
  fallback: https://hooks.example.com/fallback
  action_base_url: https://api.example.com
  communities:
    minawan: https://hooks.example.com/minawan
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.S3.Bucket != "test-pics" {
		t.Fatalf("unexpected s3 bucket: %s", cfg.S3.Bucket)
	}
	if cfg.S3.PublicBaseURL != "https://cdn.example.com" {
		t.Fatalf("unexpected public base url: %s", cfg.S3.PublicBaseURL)
	}
	if cfg.Webhooks.Fallback != "https://hooks.example.com/fallback" {
		t.Fatalf("unexpected fallback webhook: %s", cfg.Webhooks.Fallback)
	}
	if got := cfg.Webhooks.CommunityTarget(community.Minawan); got != "https://hooks.example.com/minawan" {
		t.Fatalf("unexpected minawan webhook: %s", got)
	}
	if got := cfg.Webhooks.CommunityTarget(community.Goomer); got != "" {
		t.Fatalf("goomer webhook should be unset, got %s", got)
	}

	if cfg.HTTP.ReadTimeout.String() != "5s" {
		t.Fatalf("read timeout default should stay 5s, got %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.S3.Endpoint != "localhost:9000" {
		t.Fatalf("s3 endpoint default should stay localhost:9000, got %s", cfg.S3.Endpoint)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.S3.Bucket != "minawan-pics" {
		t.Fatalf("unexpected default bucket: %s", cfg.S3.Bucket)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected default log level: %s", cfg.Log.Level)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("S3_BUCKET", "env-pics")
	t.Setenv("WEBHOOK_FALLBACK", "https://hooks.example.com/env")
	t.Setenv("WEBHOOK_GOOMER", "https://hooks.example.com/goomer")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.S3.Bucket != "env-pics" {
		t.Fatalf("env bucket override not applied: %s", cfg.S3.Bucket)
	}
	if cfg.Webhooks.Fallback != "https://hooks.example.com/env" {
		t.Fatalf("env fallback override not applied: %s", cfg.Webhooks.Fallback)
	}
	if got := cfg.Webhooks.CommunityTarget(community.Goomer); got != "https://hooks.example.com/goomer" {
		t.Fatalf("env community override not applied: %s", got)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"S3_PUBLIC_BASE_URL",
		"WEBHOOK_FALLBACK",
		"WEBHOOK_ACTION_BASE_URL",
	}
	for _, c := range community.All() {
		keys = append(keys, "WEBHOOK_"+strings.ToUpper(c.String()))
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
