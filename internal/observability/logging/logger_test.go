package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONIncludesServiceAndRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "intellidocs-api", "warn", "json")
	logger.Info("dropped")
	logger.Warn("kept", "document_id", "doc-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["service"] != "intellidocs-api" || entry["msg"] != "kept" || entry["document_id"] != "doc-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "dashboard", "debug", "text").Debug("poll")
	if !strings.Contains(buf.String(), "msg=poll") || !strings.Contains(buf.String(), "service=dashboard") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}
