package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestConfigureRejectsBadInput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	l := New()

	if err := l.Configure("loud", "json", "stdout", 0); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}

	if err := l.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
}

func TestConfigureEnvLevelWins(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	l := New()
	if err := l.Configure("warn", "text", "stderr", 0); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if got := l.GetLevel().String(); got != "debug" {
		t.Fatalf("level = %s, want debug", got)
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	l := New()
	path := filepath.Join(t.TempDir(), "depth-feed.log")

	if err := l.Configure("info", "json", path, 7); err != nil {
		t.Fatalf("Configure: %v", err)
	}
}

func TestWithComponentAddsField(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer

	l := New()
	l.SetOutput(&buf)
	l.WithComponent("depthview").WithFields(Fields{"depth": 10}).Info("view ready")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}

	if record["component"] != "depthview" || record["message"] != "view ready" {
		t.Fatalf("unexpected record: %v", record)
	}
}
