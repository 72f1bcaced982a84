package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// MinHMACSecretLength is the shortest accepted gateway signing secret.
const MinHMACSecretLength = 32

// ErrInsecureAuth is returned when gateway authentication is disabled on a
// listener reachable from other hosts.
var ErrInsecureAuth = errors.New("auth: disabling authentication requires a loopback ListenAddress or AllowInsecure")

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	host, _, err := net.SplitHostPort(c.ListenAddress)
	if err != nil {
		return fmt.Errorf("ListenAddress %q: %w", c.ListenAddress, err)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if c.RateLimit.RatePerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if c.RateLimit.RatePerSecond > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit: Burst must be positive when RatePerSecond is set")
	}
	switch strings.ToLower(strings.TrimSpace(c.StateBackend)) {
	case "", BackendLevelDB, BackendBolt:
	default:
		return fmt.Errorf("StateBackend %q: expected %q or %q", c.StateBackend, BackendLevelDB, BackendBolt)
	}
	if !c.Auth.Enabled && !c.Auth.AllowInsecure && !isLoopback(host) {
		return ErrInsecureAuth
	}
	if c.Auth.Enabled {
		if len(c.Auth.Secret()) < MinHMACSecretLength {
			return fmt.Errorf("auth: HMAC secret must be at least %d bytes", MinHMACSecretLength)
		}
		if c.Auth.ClockSkewSeconds < 0 {
			return fmt.Errorf("auth: ClockSkewSeconds must not be negative")
		}
	}
	return nil
}

// Secret returns the HMAC secret, preferring the named environment variable.
func (a AuthConfig) Secret() string {
	if name := strings.TrimSpace(a.HMACSecretEnv); name != "" {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(a.HMACSecret)
}

// isLoopback reports whether host only accepts local connections. An empty
// host binds every interface.
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
