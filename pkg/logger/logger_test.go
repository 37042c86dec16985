package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"flickrpicker/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"empty level defaults to info", &config.LoggingConfig{}, false},
		{"invalid level", &config.LoggingConfig{Level: "chatty"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
			if tt.cfg.File != "" {
				_, statErr := os.Stat(tt.cfg.File)
				assert.NoError(t, statErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.level)
		if tt.wantErr {
			assert.Error(t, err, tt.level)
			continue
		}
		assert.NoError(t, err, tt.level)
		assert.Equal(t, tt.expected, got, tt.level)
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	base, err := NewWithWriter(&buf, "debug")
	require.NoError(t, err)

	child := base.WithField("photo_id", "123")
	child.Info("child")
	base.Info("parent")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "123", first["photo_id"])
	_, ok := second["photo_id"]
	assert.False(t, ok)
}

func TestStructuredFieldTypes(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "debug")
	require.NoError(t, err)

	l.WithError(errors.New("boom")).InfoWithFields("typed", map[string]interface{}{
		"attempt": 3,
		"wait":    1200 * time.Millisecond,
		"ok":      true,
		"ids":     []string{"a", "b"},
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(3), entry["attempt"])
	assert.Equal(t, true, entry["ok"])
	assert.Equal(t, "typed", entry["message"])
}

func TestTestLoggerCapturesDerivedLoggers(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("component", "picker").WithError(errors.New("empty")).Warn("search failed")
	tl.Info("done")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "WARN", msgs[0].Level)
	assert.Equal(t, "picker", msgs[0].Fields["component"])
	assert.EqualError(t, msgs[0].Error, "empty")
	assert.True(t, tl.HasMessage("done"))
	assert.Equal(t, 1, tl.CountContaining("search"))
	assert.Len(t, tl.GetMessagesByLevel("INFO"), 1)

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("a", 1).WithError(errors.New("x")).Error("ignored")
	assert.NotNil(t, l.GetZerolog())
}

func TestGlobalLogger(t *testing.T) {
	prev := globalLogger
	defer SetLogger(prev)

	tl := NewTestLogger()
	SetLogger(tl)
	WithField("k", "v").Info("global")
	assert.True(t, tl.HasMessage("global"))
}
