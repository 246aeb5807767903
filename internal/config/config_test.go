package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Auth.CookieName == "" || cfg.Quiz.CoverImage != "/placeholder.svg" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Auth.AutoLogin() {
		t.Fatalf("expected signup auto-login by default")
	}
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
auth:
  secret: s3cret
  signup_auto_login: false
  bcrypt_cost: 4
quiz:
  ttl: 30s
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Auth.Secret != "s3cret" || cfg.Auth.BcryptCost != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Auth.AutoLogin() {
		t.Fatalf("expected explicit false to survive defaults")
	}
	if got := TTLDuration(cfg.Quiz.TTL, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %s", got)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestWithContextCarriesRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	entry := WithContext(ctx)
	if entry.Data["request_id"] != "req-1" {
		t.Fatalf("expected request id field, got %+v", entry.Data)
	}
}
