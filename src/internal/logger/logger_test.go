package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizePayloadMasksNestedSecrets(t *testing.T) {
	payload := map[string]any{
		"username": "asha",
		"password": "hunter2",
		"session": map[string]any{
			"Session-Token": "abc",
			"expiresAt":     "2024-01-01",
		},
	}

	sanitized, ok := SanitizePayload(payload).(map[string]any)
	if !ok {
		t.Fatal("expected map payload")
	}
	if sanitized["password"] != "******" {
		t.Fatalf("expected password to be masked, got %v", sanitized["password"])
	}
	if sanitized["username"] != "asha" {
		t.Fatalf("expected username to be kept, got %v", sanitized["username"])
	}
	session := sanitized["session"].(map[string]any)
	if session["Session-Token"] != "******" {
		t.Fatalf("expected nested token to be masked, got %v", session["Session-Token"])
	}
}

func TestErrorWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, Config{Level: "debug"})
	t.Cleanup(func() { SetOutput(os.Stdout, Config{}) })

	Error("settle failed", errors.New("disk full"), Fields{"accountId": "a-1", "token": "secret"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "settle failed" || line["level"] != "ERROR" {
		t.Fatalf("unexpected line %v", line)
	}
	if line["error"] != "disk full" || line["accountId"] != "a-1" {
		t.Fatalf("expected fields in line, got %v", line)
	}
	if line["token"] != "******" {
		t.Fatalf("expected token to be masked, got %v", line["token"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, Config{Level: "info", Format: "text"})
	t.Cleanup(func() { SetOutput(os.Stdout, Config{}) })

	Debug("hidden", nil)
	Info("shown", Fields{"n": 1})

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestInitWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	closer, err := Init(Config{File: path})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	Info("to file", nil)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	SetOutput(os.Stdout, Config{})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("expected line in file, got %q", data)
	}
}
