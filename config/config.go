package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"devtoken/core/genesis"
	"devtoken/crypto"
)

const (
	// EnvEnvironment overrides Config.Environment.
	EnvEnvironment = "DEVTOKEN_ENV"
	// EnvKeystorePassphrase supplies the operator keystore passphrase.
	EnvKeystorePassphrase = "DEVTOKEN_KEYSTORE_PASSPHRASE"
	// EnvJWTSecret supplies the gateway HMAC secret. The CLI signs tokens
	// with the same variable.
	EnvJWTSecret = "DEVTOKEN_JWT_SECRET"
)

// State backends accepted by StateBackend.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

type Config struct {
	ListenAddress        string `toml:"ListenAddress"`
	DataDir              string `toml:"DataDir"`
	GenesisFile          string `toml:"GenesisFile"`
	IndexerDSN           string `toml:"IndexerDSN"`
	OperatorKeystorePath string `toml:"OperatorKeystorePath"`
	NetworkName          string `toml:"NetworkName"`
	Environment          string `toml:"Environment"`
	StateBackend         string `toml:"StateBackend"`
	ReadTimeout          int    `toml:"ReadTimeout"`
	WriteTimeout         int    `toml:"WriteTimeout"`
	ShutdownTimeout      int    `toml:"ShutdownTimeout"`

	Log           LogConfig           `toml:"log"`
	Auth          AuthConfig          `toml:"auth"`
	RateLimit     RateLimitConfig     `toml:"rate_limit"`
	Observability ObservabilityConfig `toml:"observability"`
}

// Option customises Load.
type Option func(*loadOptions)

type loadOptions struct {
	passphrase func() (string, error)
}

// WithKeystorePassphrase fixes the operator keystore passphrase.
func WithKeystorePassphrase(passphrase string) Option {
	return func(o *loadOptions) {
		o.passphrase = func() (string, error) { return passphrase, nil }
	}
}

// WithKeystorePassphraseSource resolves the keystore passphrase lazily, for
// example by prompting on a terminal.
func WithKeystorePassphraseSource(source func() (string, error)) Option {
	return func(o *loadOptions) {
		if source != nil {
			o.passphrase = source
		}
	}
}

// Load loads the configuration from the given path. A missing file is
// created with defaults together with a fresh operator keystore. Unless an
// option says otherwise the keystore passphrase is read from
// DEVTOKEN_KEYSTORE_PASSPHRASE.
func Load(path string, opts ...Option) (*Config, error) {
	options := loadOptions{passphrase: func() (string, error) { return KeystorePassphrase(), nil }}
	for _, opt := range opts {
		opt(&options)
	}
	passphrase, err := options.passphrase()
	if err != nil {
		return nil, fmt.Errorf("keystore passphrase: %w", err)
	}

	cfg := &Config{}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg, err = createDefault(path, passphrase)
		if err != nil {
			return nil, err
		}
		cfg.applyEnv(os.Getenv)
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown field %q", path, undecoded[0].String())
	}
	if !meta.IsDefined("auth", "Enabled") {
		cfg.Auth.Enabled = true
	}

	if err := ensureKeystore(path, cfg, passphrase); err != nil {
		return nil, err
	}
	cfg.applyDefaults(path)
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// KeystorePassphrase returns the operator keystore passphrase from the
// environment.
func KeystorePassphrase() string {
	return os.Getenv(EnvKeystorePassphrase)
}

func ensureKeystore(configPath string, cfg *Config, passphrase string) error {
	keystorePath := cfg.OperatorKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}
	if _, _, err := crypto.LoadOrCreateKeystore(keystorePath, passphrase); err != nil {
		return err
	}
	if cfg.OperatorKeystorePath != keystorePath {
		cfg.OperatorKeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path, passphrase string) (*Config, error) {
	keystorePath := defaultKeystorePath(path)
	if _, _, err := crypto.LoadOrCreateKeystore(keystorePath, passphrase); err != nil {
		return nil, err
	}
	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}
	cfg := Default()
	cfg.OperatorKeystorePath = keystorePath
	cfg.Auth.HMACSecret = secret
	cfg.applyDefaults(path)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		ListenAddress:   ":8080",
		DataDir:         "./devtoken-data",
		StateBackend:    BackendLevelDB,
		NetworkName:     "devtoken-local",
		Environment:     "dev",
		ReadTimeout:     15,
		WriteTimeout:    15,
		ShutdownTimeout: 10,
		Log:             LogConfig{MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
		Auth: AuthConfig{
			Enabled:          true,
			HMACSecretEnv:    EnvJWTSecret,
			Issuer:           "devtoken",
			Audience:         "devtoken-gateway",
			ClockSkewSeconds: 30,
		},
		RateLimit:       RateLimitConfig{RatePerSecond: 20, Burst: 40},
		Observability:   ObservabilityConfig{ServiceName: "stakerd", Metrics: true},
	}
}

func (c *Config) applyDefaults(configPath string) {
	def := Default()
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = def.ListenAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = def.DataDir
	}
	if strings.TrimSpace(c.StateBackend) == "" {
		c.StateBackend = def.StateBackend
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = def.NetworkName
	}
	if strings.TrimSpace(c.GenesisFile) == "" {
		c.GenesisFile = filepath.Join(filepath.Dir(configPath), "genesis.yaml")
	}
	if strings.TrimSpace(c.IndexerDSN) == "" {
		c.IndexerDSN = filepath.Join(c.DataDir, "events.db")
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if strings.TrimSpace(c.Observability.ServiceName) == "" {
		c.Observability.ServiceName = def.Observability.ServiceName
	}
}

func (c *Config) applyEnv(lookup func(string) string) {
	if env := strings.TrimSpace(lookup(EnvEnvironment)); env != "" {
		c.Environment = env
	}
}

// LevelDBPath returns the directory holding the state database.
func (c *Config) LevelDBPath() string {
	return filepath.Join(c.DataDir, "state")
}

// BoltPath returns the file holding the state database when StateBackend is
// bolt.
func (c *Config) BoltPath() string {
	return filepath.Join(c.DataDir, "state.bolt")
}

// EnsureGenesis loads the genesis file, writing the default genesis owned by
// owner first when it does not exist.
func (c *Config) EnsureGenesis(owner crypto.Address) (*genesis.Spec, error) {
	if _, err := os.Stat(c.GenesisFile); errors.Is(err, fs.ErrNotExist) {
		if err := genesis.Write(c.GenesisFile, genesis.Default(owner)); err != nil {
			return nil, fmt.Errorf("write default genesis: %w", err)
		}
	} else if err != nil {
		return nil, err
	}
	return genesis.Load(c.GenesisFile)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// generateSecret returns a fresh hex encoded HMAC secret for new configs.
func generateSecret() (string, error) {
	buf := make([]byte, MinHMACSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate auth secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "operator.keystore")
}
