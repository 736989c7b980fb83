package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDisabledByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Config{})
	require.Nil(t, err)
	logger.Error().Msg("hidden")
	require.Equal(t, 0, buf.Len())
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Config{Level: "debug", Format: "json"})
	require.Nil(t, err)
	logger.Trace().Msg("too verbose")
	logger.Debug().Int("paths", 3).Msg("report ready")

	var entry map[string]any
	require.Nil(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "debug", entry[zerolog.LevelFieldName])
	require.Equal(t, "report ready", entry[zerolog.MessageFieldName])
	require.Equal(t, float64(3), entry["paths"])
	require.Contains(t, entry, zerolog.TimestampFieldName)
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Config{Level: "INFO", NoColor: true})
	require.Nil(t, err)
	logger.Info().Str("function", "main").Msg("instrumented")
	require.Contains(t, buf.String(), "instrumented")
	require.Contains(t, buf.String(), "function=main")
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	require.NotNil(t, err)

	_, err = New(nil, Config{Level: "info", Format: "xml"})
	require.NotNil(t, err)
	require.Equal(t, "unknown log format: xml", err.Error())
}
