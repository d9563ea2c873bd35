package logginghelpers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestMultiHandlerFansOut(t *testing.T) {
	var text, structured bytes.Buffer
	logger := slog.New(NewMultiHandler(
		NewHandler(&text, &Options{Level: slog.LevelInfo}),
		NewHandler(&structured, &Options{Level: LevelReportIO, JSON: true}),
	))

	logger.Log(context.Background(), LevelReportIO, "appended class", "weekStartDate", "2025-12-01")
	logger.Info("served weeks", "count", 2)

	if strings.Contains(text.String(), "appended class") {
		t.Error("io level should be below the text handler's level")
	}
	if !strings.Contains(text.String(), "served weeks") {
		t.Error("info should reach the text handler")
	}

	lines := strings.Split(strings.TrimSpace(structured.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected both records in the json handler got %d", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first["level"] != "IO" {
		t.Errorf("expected custom level name IO got %v", first["level"])
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("IO")
	if err != nil || level != LevelReportIO {
		t.Errorf("expected IO level got %v %v", level, err)
	}
	level, err = ParseLevel("warn")
	if err != nil || level != slog.LevelWarn {
		t.Errorf("expected warn got %v %v", level, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected unknown level to fail")
	}
}
