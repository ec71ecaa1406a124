package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := Setup("riskd", "test", Options{Level: "warn", Output: &buf})
	logger.Info("dropped")
	logger.Warn("kept", MaskField("token", "abc"), MaskField("operation", "borrow"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "kept", line["message"])
	require.Equal(t, "WARN", line["severity"])
	require.Equal(t, "riskd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, RedactedValue, line["token"])
	require.Equal(t, "borrow", line["operation"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
	require.Contains(t, RedactionAllowlist(), "request_id")
}
