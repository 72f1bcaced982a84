package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

// secretKeys are the DevToken log keys that carry credentials. Keys are
// compared after lowercasing and dropping '_', '-' and '.'.
var secretKeys = map[string]struct{}{
	"passphrase":         {},
	"keystorepassphrase": {},
	"hmacsecret":         {},
	"secret":             {},
	"jwtsecret":          {},
	"token":              {},
	"bearer":             {},
	"authorization":      {},
	"privatekey":         {},
	"privkey":            {},
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return -1
		}
		return r
	}, key)
}

// IsSecret reports whether values logged under key must never be emitted.
func IsSecret(key string) bool {
	_, ok := secretKeys[normalizeKey(key)]
	return ok
}

// MaskValue returns the redacted placeholder for non-empty values. Empty
// values pass through so a missing secret stays visible in logs.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns an attribute whose value is always masked.
func MaskField(key, value string) slog.Attr {
	return slog.String(key, MaskValue(value))
}

// RedactAttr masks attributes whose key names a secret, at any group depth.
// Setup installs it on every handler.
func RedactAttr(_ []string, attr slog.Attr) slog.Attr {
	if !IsSecret(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindGroup {
		return slog.String(attr.Key, RedactedValue)
	}
	return slog.String(attr.Key, MaskValue(attr.Value.String()))
}
