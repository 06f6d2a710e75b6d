package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.Info("fleet refreshed", "buses", 24, "reason", "manual")

	m := decode(t, &buf)
	assert.Equal(t, "info", m["level"])
	assert.Equal(t, "fleet refreshed", m["message"])
	assert.Equal(t, float64(24), m["buses"])
	assert.Equal(t, "manual", m["reason"])
}

func TestErrorKeyUsesErrField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.Error("publish failed", "error", errors.New("boom"))

	m := decode(t, &buf)
	assert.Equal(t, "boom", m[zerolog.ErrorFieldName])
}

func TestMapFieldsAndWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel).With("component", "sim")

	log.Warn("slow tick", map[string]interface{}{"ms": 12})

	m := decode(t, &buf)
	assert.Equal(t, "sim", m["component"])
	assert.Equal(t, float64(12), m["ms"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.WarnLevel)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestNopDoesNotPanic(t *testing.T) {
	log := Nop()
	log.Info("x", "k", "v")
	log.With("a", 1).Error("y", "error", errors.New("z"))
}
