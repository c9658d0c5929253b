package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, "debug", "json"), "session")

	log.Info().Str("session_id", "s1").Msg("Session in progress")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "exstem-proctor", line["service"])
	require.Equal(t, "session", line["component"])
	require.Equal(t, "s1", line["session_id"])
	require.Equal(t, "info", line["level"])
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "loud", "json")
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
