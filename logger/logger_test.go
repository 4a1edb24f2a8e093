package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger_InfoWithFields(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = JSONFormat
	cfg.Environment = "production"
	cfg.Outputs = []io.Writer{&buf}

	log := NewZerologLogger(cfg)
	log.Info("ephemeral user created", String("username", "gk_abc123"), Int("connection_limit", 2))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ephemeral user created", decoded["message"])
	assert.Equal(t, "gk_abc123", decoded["username"])
	assert.EqualValues(t, 2, decoded["connection_limit"])
}

func TestZerologLogger_WithSubsystem(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = JSONFormat
	cfg.Environment = "production"
	cfg.Outputs = []io.Writer{&buf}

	log := NewZerologLogger(cfg).WithSubsystem("postgres")
	log.Warn("pool exhausted")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "postgres", decoded["module"])
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseLogLevel(input), input)
	}
}
