package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// newBufferLogger returns a Logger writing JSON into buf at the given level.
func newBufferLogger(buf *bytes.Buffer, level zerolog.Level) *Logger {
	zlog := zerolog.New(buf).Level(level).With().Timestamp().Logger()
	return &Logger{zlog: zlog}
}

func TestNewPerEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development", "test", ""} {
		t.Run("env "+env, func(t *testing.T) {
			log := New(env)
			if log == nil {
				t.Fatal("expected a logger")
			}
			if log.GetZerolog() == nil {
				t.Error("expected the underlying zerolog to be available")
			}
		})
	}
}

func TestLevelsCarryFields(t *testing.T) {
	tests := []struct {
		name  string
		emit  func(l *Logger)
		wants []string
	}{
		{
			name: "debug",
			emit: func(l *Logger) {
				l.Debug("draft saved", map[string]interface{}{"visitor": "v-1"})
			},
			wants: []string{"draft saved", "v-1"},
		},
		{
			name: "info",
			emit: func(l *Logger) {
				l.Info("plot selected", map[string]interface{}{"plot": "42", "step": "map_pick"})
			},
			wants: []string{"plot selected", "42", "map_pick"},
		},
		{
			name: "warn",
			emit: func(l *Logger) {
				l.Warn("backend request failed", map[string]interface{}{"status": 502})
			},
			wants: []string{"backend request failed", "502"},
		},
		{
			name: "error",
			emit: func(l *Logger) {
				l.Error("submission failed", errors.New("backend unreachable"), map[string]interface{}{"plot": "42"})
			},
			wants: []string{"submission failed", "backend unreachable", "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newBufferLogger(&buf, zerolog.DebugLevel))

			output := buf.String()
			for _, want := range tt.wants {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q, got %q", want, output)
				}
			}
		})
	}
}

func TestInfoLevelSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, zerolog.InfoLevel)

	log.Debug("approval poll tick failed", nil)
	if buf.Len() != 0 {
		t.Errorf("debug output should be suppressed at info level, got %q", buf.String())
	}

	log.Info("reservation submitted", nil)
	if !strings.Contains(buf.String(), "reservation submitted") {
		t.Error("info output should pass at info level")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, zerolog.DebugLevel)

	child := log.With(map[string]interface{}{"component": "gateway"})
	child.Info("fetched plot inventory", nil)

	if !strings.Contains(buf.String(), "gateway") {
		t.Errorf("expected context field on every line, got %q", buf.String())
	}
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, zerolog.DebugLevel)

	log.WithRequestID("req-12345").Info("request completed", nil)

	output := buf.String()
	if !strings.Contains(output, "request_id") || !strings.Contains(output, "req-12345") {
		t.Errorf("expected request_id field, got %q", output)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, zerolog.DebugLevel)

	log.Info("wizard advanced", map[string]interface{}{"step": "confirm"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}
	if entry["message"] != "wizard advanced" {
		t.Errorf("expected message field, got %v", entry["message"])
	}
	if entry["step"] != "confirm" {
		t.Errorf("expected step field, got %v", entry["step"])
	}
}

func TestNilFields(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, zerolog.DebugLevel)

	log.Info("no fields attached", nil)

	if !strings.Contains(buf.String(), "no fields attached") {
		t.Error("nil fields must not suppress the message")
	}
}
