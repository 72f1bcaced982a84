package logging

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSecret(t *testing.T) {
	for _, key := range []string{"passphrase", "keystore_passphrase", "HMACSecret", "hmac-secret", "token", "Authorization", "private_key", "jwt.secret"} {
		require.True(t, IsSecret(key), key)
	}
	for _, key := range []string{"caller", "amount", "operation", "error", "tokenSupply"} {
		require.False(t, IsSecret(key), key)
	}
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("token", "eyJhbGciOi").Value.String())
	require.Equal(t, RedactedValue, MaskField("caller", "cosmos1xyz").Value.String())
	require.Equal(t, "", MaskField("token", "").Value.String())
}

func captureSetup(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	prevDefault := slog.Default()
	prevWriter := log.Writer()
	t.Cleanup(func() {
		slog.SetDefault(prevDefault)
		log.SetOutput(prevWriter)
	})
	var buf bytes.Buffer
	return setup(&buf, "stakerd", "test", slog.LevelInfo), &buf
}

func TestSetupRedactsSecretAttributes(t *testing.T) {
	logger, buf := captureSetup(t)
	logger.Info("keystore unlocked",
		"passphrase", "correct horse battery staple",
		slog.Group("auth", slog.String("hmacSecret", "0123456789abcdef"), slog.String("issuer", "devtoken")),
		"caller", "cosmos1abc",
	)

	out := buf.String()
	require.NotContains(t, out, "correct horse battery staple")
	require.NotContains(t, out, "0123456789abcdef")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "keystore unlocked", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "stakerd", line["service"])
	require.Equal(t, RedactedValue, line["passphrase"])
	require.Equal(t, "cosmos1abc", line["caller"])
	auth, ok := line["auth"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, RedactedValue, auth["hmacSecret"])
	require.Equal(t, "devtoken", auth["issuer"])
}

func TestSetupKeepsEmptySecretsVisible(t *testing.T) {
	logger, buf := captureSetup(t)
	logger.Warn("no gateway secret", "hmacSecret", "")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "", line["hmacSecret"])
}

func TestStdLoggerBridge(t *testing.T) {
	_, buf := captureSetup(t)
	log.Print("legacy line")
	require.Contains(t, buf.String(), `"message":"legacy line"`)
}
