package config

import (
	"log/slog"
	"time"

	"devtoken/observability/logging"
)

// LogConfig controls the rotated log file. An empty File logs to stdout only.
type LogConfig struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Debug      bool   `toml:"Debug"`
}

// AuthConfig configures bearer token verification on the gateway. The token
// subject is the caller's address. Disabling it is only accepted on a
// loopback listener unless AllowInsecure is set.
type AuthConfig struct {
	Enabled          bool   `toml:"Enabled"`
	AllowInsecure    bool   `toml:"AllowInsecure"`
	HMACSecret       string `toml:"HMACSecret"`
	HMACSecretEnv    string `toml:"HMACSecretEnv"`
	Issuer           string `toml:"Issuer"`
	Audience         string `toml:"Audience"`
	ClockSkewSeconds int    `toml:"ClockSkewSeconds"`
}

// ClockSkew returns the tolerated clock drift for token validation.
func (a AuthConfig) ClockSkew() time.Duration {
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

// LogValue keeps the HMAC secret out of log lines.
func (a AuthConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", a.Enabled),
		slog.Bool("allowInsecure", a.AllowInsecure),
		slog.String("issuer", a.Issuer),
		slog.String("audience", a.Audience),
		slog.String("hmacSecretEnv", a.HMACSecretEnv),
		logging.MaskField("hmacSecret", a.Secret()),
	)
}

// RateLimitConfig applies a token bucket per client.
type RateLimitConfig struct {
	RatePerSecond float64 `toml:"RatePerSecond"`
	Burst         int     `toml:"Burst"`
}

type ObservabilityConfig struct {
	ServiceName string `toml:"ServiceName"`
	Metrics     bool   `toml:"Metrics"`
	Tracing     bool   `toml:"Tracing"`
	LogRequests bool   `toml:"LogRequests"`
}
