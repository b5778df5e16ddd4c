package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
		"fatal":   LevelFatal,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestConfig_LevelFromYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("level: debug\nformat: json\n"), &cfg))
	assert.Equal(t, LevelDebug, cfg.Level)
	assert.Equal(t, "json", cfg.Format)

	err := yaml.Unmarshal([]byte("level: chatty\n"), &cfg)
	assert.Error(t, err)
}

func TestLogrusLogger_JSONWithFields(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	cfg.Fields = map[string]string{"app_name": "bus-tracking"}
	log := NewLogrusLogger(cfg)

	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithField("component", "hub").Infof("connections=%d", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "connections=3", entry["message"])
	assert.Equal(t, "hub", entry["component"])
	assert.Equal(t, "bus-tracking", entry["app_name"])
	assert.Equal(t, "info", entry["level"])
}

func TestLogrusLogger_ChildHonoursSetLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "text"
	log := NewLogrusLogger(cfg)
	child := log.WithField("component", "store")

	var buf bytes.Buffer
	child.SetOutput(&buf)
	child.SetLevel(LevelError)

	child.Info("dropped")
	assert.Zero(t, buf.Len())

	child.Error("kept")
	assert.Contains(t, buf.String(), "kept")
}
