package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// chdir backports testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("restore chdir: %v", err)
		}
	})
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Mode != "release" {
		t.Errorf("Mode = %q, want release", cfg.Mode)
	}
	if cfg.ReadLimit != 32768 {
		t.Errorf("ReadLimit = %d, want 32768", cfg.ReadLimit)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Errorf("PingPeriod = %v, want 54s", cfg.PingPeriod)
	}
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("ICEServers = %v, want the default STUN address", cfg.ICEServers)
	}
	if cfg.ChatBurst != 20 {
		t.Errorf("ChatBurst = %d, want 20", cfg.ChatBurst)
	}
	if cfg.ChatWindow != 10*time.Second {
		t.Errorf("ChatWindow = %v, want 10s", cfg.ChatWindow)
	}
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	t.Setenv("CONFIG_ENV", "test")
	dir := t.TempDir()
	chdir(t, dir)

	writeFile(t, "config/config.test.yaml", `
mode: debug
port: 9999
chat_burst: 5
ice_servers:
  - stun:stun.example.org:3478
  - turn:turn.example.org:3478
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.Mode != "debug" {
		t.Errorf("Mode = %q, want debug", cfg.Mode)
	}
	if cfg.ChatBurst != 5 {
		t.Errorf("ChatBurst = %d, want 5", cfg.ChatBurst)
	}
	if len(cfg.ICEServers) != 2 {
		t.Errorf("ICEServers = %v, want 2 entries", cfg.ICEServers)
	}
	// Unset keys still fall back to defaults.
	if cfg.ReadLimit != 32768 {
		t.Errorf("ReadLimit = %d, want default 32768", cfg.ReadLimit)
	}
}
