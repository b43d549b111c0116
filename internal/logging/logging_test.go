package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureLogOutput captures log output for testing by temporarily
// redirecting the logger to write to a buffer
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger

	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)

	f()

	defaultLogger = oldLogger

	return buf.String()
}

func TestInitLoggerTo(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		format    Format
		wantDebug bool
		wantJSON  bool
	}{
		{name: "Debug level JSON format", level: LevelDebug, format: FormatJSON, wantDebug: true, wantJSON: true},
		{name: "Info level JSON format", level: LevelInfo, format: FormatJSON, wantJSON: true},
		{name: "Warn level Text format", level: LevelWarn, format: FormatText},
		{name: "Debug level Text format", level: LevelDebug, format: FormatText, wantDebug: true},
		{name: "Default level (invalid value)", level: Level(999), format: FormatJSON, wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			InitLoggerTo(&buf, tt.level, tt.format)
			defer InitLogger(LevelInfo, FormatText)

			Debug("debug message")
			Error("error message", "key", "value")

			out := buf.String()
			if got := strings.Contains(out, "debug message"); got != tt.wantDebug {
				t.Errorf("debug message logged = %v, want %v\n%s", got, tt.wantDebug, out)
			}
			if !strings.Contains(out, "error message") {
				t.Errorf("Expected error message in output, got %q", out)
			}
			if got := strings.HasPrefix(out, "{"); got != tt.wantJSON {
				t.Errorf("JSON output = %v, want %v\n%s", got, tt.wantJSON, out)
			}
		})
	}
}

func TestInitLoggerTimeFormat(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, LevelInfo, FormatJSON)
	defer InitLogger(LevelInfo, FormatText)

	Info("tick")

	out := buf.String()
	idx := strings.Index(out, `"time":"`)
	if idx < 0 {
		t.Fatalf("no time field in %q", out)
	}
	value := out[idx+len(`"time":"`):]
	value = value[:strings.Index(value, `"`)]
	if _, err := time.Parse(time.RFC3339, value); err != nil {
		t.Errorf("time %q is not RFC3339: %v", value, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: " error ", want: LevelError},
		{in: "verbose", want: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if got, err := ParseFormat("json"); err != nil || got != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", got, err)
	}
	if got, err := ParseFormat("Text"); err != nil || got != FormatText {
		t.Errorf("ParseFormat(Text) = %v, %v", got, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(yaml) expected error")
	}
}

func TestGetRunID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "Context with run ID",
			ctx:      WithRunID(context.Background(), "test-id"),
			expected: "test-id",
		},
		{
			name:     "Context without run ID",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "Context with wrong type value",
			ctx:      context.WithValue(context.Background(), RunIDKey, 12345),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetRunID(tt.ctx); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestContextLoggingFunctions(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-123")

	tests := []struct {
		name string
		fn   func()
	}{
		{name: "DebugContext", fn: func() { DebugContext(ctx, "debug message", "key", "value") }},
		{name: "InfoContext", fn: func() { InfoContext(ctx, "info message", "key", "value") }},
		{name: "WarnContext", fn: func() { WarnContext(ctx, "warning message", "key", "value") }},
		{name: "ErrorContext", fn: func() { ErrorContext(ctx, "error message", "key", "value") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(tt.fn)
			if !strings.Contains(output, `"run_id":"run-123"`) {
				t.Errorf("Expected output to contain run ID, got %q", output)
			}
		})
	}
}

func TestConversion(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	output := captureLogOutput(func() {
		Conversion(ctx, "in/book.json", "out/book.json", 12, 14, 30*time.Millisecond, "manifest_id", "m1")
	})

	for _, want := range []string{
		`"msg":"conversion"`,
		`"source":"in/book.json"`,
		`"output":"out/book.json"`,
		`"canvases":12`,
		`"images":14`,
		`"duration_ms":30`,
		`"manifest_id":"m1"`,
		`"run_id":"run-1"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got %q", want, output)
		}
	}
}

func TestConversionSkipped(t *testing.T) {
	output := captureLogOutput(func() {
		ConversionSkipped(context.Background(), "in/book.json", "unchanged")
	})
	if !strings.Contains(output, `"msg":"conversion_skipped"`) || !strings.Contains(output, `"reason":"unchanged"`) {
		t.Errorf("unexpected output %q", output)
	}
}

func TestConversionError(t *testing.T) {
	output := captureLogOutput(func() {
		ConversionError(context.Background(), "in/bad.json", errors.New("manifest must be a JSON object, got array"))
	})
	if !strings.Contains(output, `"level":"ERROR"`) {
		t.Errorf("Expected error level, got %q", output)
	}
	if !strings.Contains(output, "got array") {
		t.Errorf("Expected error message, got %q", output)
	}
}

func TestBatchSummary(t *testing.T) {
	output := captureLogOutput(func() {
		BatchSummary(context.Background(), 10, 7, 2, 1, 2*time.Second)
	})
	for _, want := range []string{`"total":10`, `"converted":7`, `"skipped":2`, `"failed":1`, `"duration_ms":2000`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got %q", want, output)
		}
	}
}
