package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]any{
		"trace": log.LevelTrace,
		"DEBUG": log.LevelDebug,
		"info":  log.LevelInfo,
		"warn":  log.LevelWarn,
		"error": log.LevelError,
		"crit":  log.LevelCrit,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestFormatSet(t *testing.T) {
	var f FormatType
	require.NoError(t, f.Set("json"))
	require.Equal(t, FormatJSON, f)
	require.Error(t, f.Set("xml"))
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, CLIConfig{Level: log.LevelInfo, Format: FormatJSON})
	l.Debug("hidden")
	l.Info("deployed", "name", "LendingPool")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "deployed", rec["msg"])
	require.Equal(t, "LendingPool", rec["name"])
}
