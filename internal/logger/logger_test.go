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
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestInfoCarriesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, zerolog.DebugLevel)

	l.Info("FrameRunner", "frame done", map[string]interface{}{"frame": "a_z01", "neurons": 3})

	got := decode(t, &buf)
	assert.Equal(t, "info", got["level"])
	assert.Equal(t, "FrameRunner", got["component"])
	assert.Equal(t, "frame done", got["message"])
	assert.Equal(t, "a_z01", got["frame"])
	assert.EqualValues(t, 3, got["neurons"])
}

func TestErrorCarriesCause(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, zerolog.InfoLevel)

	l.Error("Store", errors.New("disk full"), nil)

	got := decode(t, &buf)
	assert.Equal(t, "error", got["level"])
	assert.Equal(t, "disk full", got["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, zerolog.WarnLevel)

	l.Debug("Pipeline", "hidden", nil)
	l.Info("Pipeline", "hidden", map[string]interface{}{"k": 1})
	assert.Zero(t, buf.Len())

	l.Warning("Pipeline", "shown", nil)
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("x", "y", nil)
	l.Error("x", errors.New("z"), nil)
}
