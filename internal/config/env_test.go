package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PLATFORMER_TEST_STR", "value")
	t.Setenv("PLATFORMER_TEST_INT", "42")
	t.Setenv("PLATFORMER_TEST_BADINT", "forty")
	t.Setenv("PLATFORMER_TEST_DUR", "250ms")

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string set", GetEnv("PLATFORMER_TEST_STR", "x"), "value"},
		{"string unset", GetEnv("PLATFORMER_TEST_NONE", "x"), "x"},
		{"int set", GetEnvInt("PLATFORMER_TEST_INT", 1), 42},
		{"int invalid", GetEnvInt("PLATFORMER_TEST_BADINT", 1), 1},
		{"int unset", GetEnvInt("PLATFORMER_TEST_NONE", 7), 7},
		{"duration set", GetEnvDuration("PLATFORMER_TEST_DUR", time.Second), 250 * time.Millisecond},
		{"duration invalid", GetEnvDuration("PLATFORMER_TEST_STR", time.Second), time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "PLATFORMER_TEST_LOADED=yes\nPLATFORMER_TEST_KEPT=file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PLATFORMER_TEST_KEPT", "env")
	t.Cleanup(func() { os.Unsetenv("PLATFORMER_TEST_LOADED") })

	if err := Load(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := GetEnv("PLATFORMER_TEST_LOADED", ""); got != "yes" {
		t.Errorf("loaded = %q", got)
	}
	if got := GetEnv("PLATFORMER_TEST_KEPT", ""); got != "env" {
		t.Errorf("existing variable overwritten: %q", got)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output %q", buf.String())
	}
}
