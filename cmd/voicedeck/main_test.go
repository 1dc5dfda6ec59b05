package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/voicedeck/internal/config"
	"github.com/dgnsrekt/voicedeck/internal/logging"
	"github.com/dgnsrekt/voicedeck/internal/voices"
	"github.com/dgnsrekt/voicedeck/internal/wav"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.ConfigFileEnv, "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configFile, dataDir, logLevel = "", "", ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "voicedeck "+version) {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	t.Setenv(config.ConfigFileEnv, "")
	dataDir, logLevel = "/srv/voicedeck", "debug"
	t.Cleanup(func() { dataDir, logLevel = "", "" })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.VoicesDir != filepath.Join("/srv/voicedeck", "voices") || cfg.LogLevel != "debug" {
		t.Errorf("flags not applied: voices=%s level=%s", cfg.VoicesDir, cfg.LogLevel)
	}
}

func TestLoadConfig_InvalidFlag(t *testing.T) {
	t.Setenv(config.ConfigFileEnv, "")
	logLevel = "loud"
	t.Cleanup(func() { logLevel = "" })

	if _, err := loadConfig(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestModelsStatus(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "models", "status", "--data-dir", dir, "--log-level", "error")
	if err != nil {
		t.Fatalf("models status error: %v", err)
	}
	if !strings.Contains(out, "Qwen3-TTS-12Hz-1.7B-Base-8bit") || !strings.Contains(out, "missing") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestModelsFetch_UnknownMode(t *testing.T) {
	if _, err := execute(t, "models", "fetch", "karaoke", "--data-dir", t.TempDir()); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestVoicesCommands(t *testing.T) {
	dir := t.TempDir()

	sample := filepath.Join(t.TempDir(), "sample.wav")
	if err := os.WriteFile(sample, wav.CreateTone(time.Second, 220, 24000), 0o644); err != nil {
		t.Fatalf("failed to write sample: %v", err)
	}
	store, err := voices.Open(voices.Options{Dir: filepath.Join(dir, "voices"), Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("voices.Open() error: %v", err)
	}
	p, err := store.Enroll("Nora", sample, "hello world")
	if err != nil {
		t.Fatalf("Enroll() error: %v", err)
	}

	out, err := execute(t, "voices", "list", "--data-dir", dir, "--log-level", "error")
	if err != nil {
		t.Fatalf("voices list error: %v", err)
	}
	if !strings.Contains(out, p.ID) || !strings.Contains(out, "Nora") {
		t.Errorf("voice missing from list:\n%s", out)
	}

	out, err = execute(t, "voices", "rename", p.ID, "Nora", "B.", "--data-dir", dir, "--log-level", "error")
	if err != nil {
		t.Fatalf("voices rename error: %v", err)
	}
	if !strings.Contains(out, "Renamed "+p.ID+" to Nora B.") {
		t.Errorf("unexpected output: %q", out)
	}

	if _, err := execute(t, "voices", "delete", p.ID, "--data-dir", dir, "--log-level", "error"); err != nil {
		t.Fatalf("voices delete error: %v", err)
	}
	if _, err := execute(t, "voices", "delete", p.ID, "--data-dir", dir, "--log-level", "error"); err == nil {
		t.Error("expected error deleting an unknown voice")
	}
}

func TestHistory_Empty(t *testing.T) {
	out, err := execute(t, "history", "--data-dir", t.TempDir(), "--log-level", "error")
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if !strings.Contains(out, "No generations yet") {
		t.Errorf("unexpected output: %q", out)
	}
}
