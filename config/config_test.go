package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"devtoken/crypto"
)

const testKeystorePassphrase = "test-passphrase"

func TestLoadCreatesDefaultWithKeystore(t *testing.T) {
	t.Setenv(EnvKeystorePassphrase, testKeystorePassphrase)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, filepath.Join(dir, "operator.keystore"), cfg.OperatorKeystorePath)
	require.Equal(t, filepath.Join(dir, "genesis.yaml"), cfg.GenesisFile)
	require.Equal(t, BackendLevelDB, cfg.StateBackend)
	require.FileExists(t, path)

	// Fresh nodes enforce bearer tokens with a generated secret.
	require.True(t, cfg.Auth.Enabled)
	require.Len(t, cfg.Auth.HMACSecret, 2*MinHMACSecretLength)

	key, err := crypto.LoadFromKeystore(cfg.OperatorKeystorePath, testKeystorePassphrase)
	require.NoError(t, err)
	require.NotNil(t, key)

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.OperatorKeystorePath, again.OperatorKeystorePath)
	require.Equal(t, cfg.Auth.HMACSecret, again.Auth.HMACSecret)
	reloaded, err := crypto.LoadFromKeystore(again.OperatorKeystorePath, testKeystorePassphrase)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), reloaded.PubKey().Address().String())
}

func TestLoadParsesSettings(t *testing.T) {
	t.Setenv(EnvKeystorePassphrase, testKeystorePassphrase)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = "127.0.0.1:9000"
DataDir = "./data"
IndexerDSN = "postgres://devtoken@localhost/events"
NetworkName = "testnet"
ReadTimeout = 20

[log]
File = "stakerd.log"
Debug = true

[auth]
Enabled = true
HMACSecret = "0123456789abcdef0123456789abcdef"
Issuer = "issuer"

[rate_limit]
RatePerSecond = 2.5
Burst = 5

[observability]
Tracing = true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
	require.Equal(t, "postgres://devtoken@localhost/events", cfg.IndexerDSN)
	require.Equal(t, 20, cfg.ReadTimeout)
	require.Equal(t, 15, cfg.WriteTimeout)
	require.True(t, cfg.Log.Debug)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, 2.5, cfg.RateLimit.RatePerSecond)
	require.Equal(t, "stakerd", cfg.Observability.ServiceName)
	require.Equal(t, filepath.Join("data", "state"), cfg.LevelDBPath())

	// The keystore path is persisted on first load.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(raw), "operator.keystore"))
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Setenv(EnvKeystorePassphrase, testKeystorePassphrase)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("ValidatorKey = \"abc\"\n"), 0o644))
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown field")
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv(EnvKeystorePassphrase, testKeystorePassphrase)
	t.Setenv(EnvEnvironment, "staging")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Environment)
}

func validConfig() *Config {
	cfg := Default()
	cfg.Auth.HMACSecret = "0123456789abcdef0123456789abcdef"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	cases := map[string]func(*Config){
		"unknown backend": func(c *Config) { c.StateBackend = "rocksdb" },
		"bad listen":      func(c *Config) { c.ListenAddress = "nope" },
		"empty data dir":  func(c *Config) { c.DataDir = " " },
		"negative rate":   func(c *Config) { c.RateLimit.RatePerSecond = -1 },
		"zero burst":      func(c *Config) { c.RateLimit.Burst = 0 },
		"short secret": func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.HMACSecret = "short"
		},
	}
	require.NoError(t, validConfig().Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidateDisabledAuthListener(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	require.ErrorContains(t, Default().Validate(), "HMAC secret", "defaults enforce auth and need a secret")

	cases := []struct {
		listen        string
		allowInsecure bool
		ok            bool
	}{
		{":8080", false, false},
		{"0.0.0.0:8080", false, false},
		{"10.1.2.3:8080", false, false},
		{"127.0.0.1:8080", false, true},
		{"[::1]:8080", false, true},
		{"localhost:8080", false, true},
		{":8080", true, true},
	}
	for _, tc := range cases {
		cfg := Default()
		cfg.ListenAddress = tc.listen
		cfg.Auth.Enabled = false
		cfg.Auth.AllowInsecure = tc.allowInsecure
		err := cfg.Validate()
		if tc.ok {
			require.NoError(t, err, tc.listen)
			continue
		}
		require.ErrorIs(t, err, ErrInsecureAuth, tc.listen)
	}
}

func TestLoadEnablesAuthUnlessExplicitlyDisabled(t *testing.T) {
	t.Setenv(EnvKeystorePassphrase, testKeystorePassphrase)
	t.Setenv(EnvJWTSecret, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	// Omitting Enabled keeps token checks on, so a missing secret is fatal.
	require.NoError(t, os.WriteFile(path, []byte("ListenAddress = \"127.0.0.1:9000\"\n"), 0o644))
	_, err := Load(path)
	require.ErrorContains(t, err, "HMAC secret")

	require.NoError(t, os.WriteFile(path, []byte("ListenAddress = \":9000\"\n[auth]\nEnabled = false\n"), 0o644))
	_, err = Load(path)
	require.ErrorIs(t, err, ErrInsecureAuth)

	require.NoError(t, os.WriteFile(path, []byte("ListenAddress = \"127.0.0.1:9000\"\n[auth]\nEnabled = false\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.Auth.Enabled)
}

func TestAuthSecretPrefersEnv(t *testing.T) {
	t.Setenv("GATEWAY_SECRET", "from-env")
	auth := AuthConfig{HMACSecret: "inline", HMACSecretEnv: "GATEWAY_SECRET"}
	require.Equal(t, "from-env", auth.Secret())
	auth.HMACSecretEnv = "UNSET_GATEWAY_SECRET"
	require.Equal(t, "inline", auth.Secret())
}

func TestAuthConfigLogValueMasksSecret(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	auth := Default().Auth
	auth.HMACSecret = "0123456789abcdef0123456789abcdef"
	logger.Info("auth", "auth", auth)

	require.NotContains(t, buf.String(), auth.HMACSecret)
	var line struct {
		Auth map[string]any `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "[REDACTED]", line.Auth["hmacSecret"])
	require.Equal(t, true, line.Auth["enabled"])
	require.Equal(t, "devtoken", line.Auth["issuer"])
}

func TestEnsureGenesisWritesDefault(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.GenesisFile = filepath.Join(dir, "genesis.yaml")
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	spec, err := cfg.EnsureGenesis(addr)
	require.NoError(t, err)
	require.Equal(t, addr.String(), spec.Owner)
	require.FileExists(t, cfg.GenesisFile)

	other, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	spec, err = cfg.EnsureGenesis(other.PubKey().Address())
	require.NoError(t, err)
	require.Equal(t, addr.String(), spec.Owner, "existing genesis is never overwritten")
}

func TestLoadUsesPassphraseSource(t *testing.T) {
	t.Setenv(EnvKeystorePassphrase, "")
	path := filepath.Join(t.TempDir(), "config.toml")

	calls := 0
	source := func() (string, error) {
		calls++
		return "prompted-secret", nil
	}
	cfg, err := Load(path, WithKeystorePassphraseSource(source))
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	_, err = crypto.LoadFromKeystore(cfg.OperatorKeystorePath, "prompted-secret")
	require.NoError(t, err)

	_, err = Load(path, WithKeystorePassphrase("wrong"))
	require.Error(t, err)

	_, err = Load(path, WithKeystorePassphraseSource(func() (string, error) {
		return "", errors.New("no terminal")
	}))
	require.ErrorContains(t, err, "no terminal")
}
