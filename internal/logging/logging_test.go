package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// captureLogOutput redirects the global logger to a buffer while f runs.
func captureLogOutput(level Level, format Format, f func()) string {
	var buf bytes.Buffer
	old := defaultLogger
	InitLoggerTo(&buf, level, format)
	f()
	defaultLogger = old
	return buf.String()
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{"Debug level JSON format", LevelDebug, FormatJSON},
		{"Info level JSON format", LevelInfo, FormatJSON},
		{"Warn level Text format", LevelWarn, FormatText},
		{"Error level Text format", LevelError, FormatText},
		{"Default level (invalid value)", Level(999), FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if GetLogger() == nil {
				t.Error("Expected logger to be initialized, got nil")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestOperationID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{"with id", WithOperationID(context.Background(), "op-1"), "op-1"},
		{"without id", context.Background(), ""},
		{"wrong type", context.WithValue(context.Background(), OperationIDKey, 12345), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetOperationID(tt.ctx); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestLoggerFromContextAddsOperationID(t *testing.T) {
	out := captureLogOutput(LevelDebug, FormatJSON, func() {
		InfoContext(WithOperationID(context.Background(), "abc"), "edit")
	})
	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if rec["op_id"] != "abc" {
		t.Errorf("op_id = %v, want abc", rec["op_id"])
	}
	if rec["msg"] != "edit" {
		t.Errorf("msg = %v, want edit", rec["msg"])
	}
	if _, err := time.Parse(time.RFC3339, rec["time"].(string)); err != nil {
		t.Errorf("time not RFC3339: %v", rec["time"])
	}
}

func TestLevelFiltering(t *testing.T) {
	out := captureLogOutput(LevelWarn, FormatText, func() {
		Debug("hidden-debug")
		Info("hidden-info")
		Warn("shown-warn")
		Error("shown-error")
	})
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn were logged:\n%s", out)
	}
	if !strings.Contains(out, "shown-warn") || !strings.Contains(out, "shown-error") {
		t.Errorf("missing warn or error output:\n%s", out)
	}
}

func TestDomainHelpers(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		log  func()
		want []string
	}{
		{
			name: "DocumentLoaded",
			log:  func() { DocumentLoaded(ctx, "ch01.md", 3, strings.Repeat("f", 64)) },
			want: []string{`"msg":"document_loaded"`, `"blocks":3`, `"digest":"ffffffffffff"`},
		},
		{
			name: "DocumentWritten",
			log:  func() { DocumentWritten(ctx, "ch01.md", "insert", 5*time.Millisecond) },
			want: []string{`"msg":"document_written"`, `"operation":"insert"`, `"duration_ms":5`},
		},
		{
			name: "MigrationApplied",
			log:  func() { MigrationApplied(ctx, "ch02.md", 2, 1, 4) },
			want: []string{`"msg":"migration_applied"`, `"fills":2`, `"discarded":1`, `"removed":4`},
		},
		{
			name: "WarningsReported",
			log:  func() { WarningsReported(ctx, "ch03.md", 2) },
			want: []string{`"msg":"warnings_reported"`, `"count":2`},
		},
		{
			name: "CommitRecorded",
			log:  func() { CommitRecorded(ctx, "ch01.md", "quill: insert b4") },
			want: []string{`"msg":"commit_recorded"`, `"message":"quill: insert b4"`},
		},
		{
			name: "OperationError",
			log:  func() { OperationError(ctx, "reorder", errors.New("boom")) },
			want: []string{`"msg":"operation_error"`, `"error":"boom"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureLogOutput(LevelDebug, FormatJSON, tt.log)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %s:\n%s", w, out)
				}
			}
		})
	}
}

func TestWarningsReportedSilentWhenZero(t *testing.T) {
	out := captureLogOutput(LevelDebug, FormatJSON, func() {
		WarningsReported(context.Background(), "ch01.md", 0)
	})
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
}
