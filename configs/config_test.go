package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadDefaultsAndFile(t *testing.T) {
	dir := writeConfig(t, `
db:
  dsn: "postgres://localhost/test"
jwt:
  secret: "s3cret"
workflow:
  pending_ttl: 72h
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.DSN != "postgres://localhost/test" {
		t.Errorf("dsn = %q", cfg.DB.DSN)
	}
	if cfg.Workflow.PendingTTL != 72*time.Hour {
		t.Errorf("pending ttl = %v", cfg.Workflow.PendingTTL)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr default = %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level default = %q", cfg.Log.Level)
	}
	if cfg.Pagination.MaxLimit != 100 {
		t.Errorf("max limit default = %d", cfg.Pagination.MaxLimit)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := writeConfig(t, "jwt:\n  secret: \"from-file\"\n")
	t.Setenv("JWT_SECRET", "from-env")
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWT.SECRET != "from-env" {
		t.Errorf("secret = %q, want env value", cfg.JWT.SECRET)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	dir := writeConfig(t, "db:\n  dsn: x\n")
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error without jwt.secret")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
