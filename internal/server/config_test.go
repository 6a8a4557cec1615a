package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got := v.GetString("server.host"); got != "0.0.0.0" {
		t.Errorf("server.host = %q", got)
	}
	if got := v.GetInt("server.port"); got != 8080 {
		t.Errorf("server.port = %d", got)
	}
	if got := v.GetString("plugins.sentry.cooldown"); got != "30s" {
		t.Errorf("plugins.sentry.cooldown = %q", got)
	}
	if got := v.GetFloat64("plugins.sentry.confidence_threshold"); got != 0.70 {
		t.Errorf("plugins.sentry.confidence_threshold = %v", got)
	}
	if got := v.GetString("kismet.url"); got != "http://localhost:2501" {
		t.Errorf("kismet.url = %q", got)
	}
	// Auth disabled out of the box.
	if got := v.GetString("auth.password_hash"); got != "" {
		t.Errorf("auth.password_hash = %q, want empty", got)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airwarden.yaml")
	content := []byte("server:\n  port: 9090\nplugins:\n  sentry:\n    cooldown: 45s\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got := v.GetInt("server.port"); got != 9090 {
		t.Errorf("server.port = %d, want 9090", got)
	}
	if got := v.GetString("plugins.sentry.cooldown"); got != "45s" {
		t.Errorf("plugins.sentry.cooldown = %q", got)
	}
	// Untouched keys keep their defaults.
	if got := v.GetString("server.host"); got != "0.0.0.0" {
		t.Errorf("server.host = %q", got)
	}
}

func TestLoadConfig_MissingExplicitFileFails(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicitly named missing config file did not error")
	}
}

func TestConfigAddr(t *testing.T) {
	c := Config{Host: "127.0.0.1", Port: 8080}
	if got := c.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr = %q", got)
	}
}
