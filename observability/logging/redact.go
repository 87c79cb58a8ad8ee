package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log lines.
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"module":    {},
	"subject":   {},
}

// IsAllowlisted reports whether key may be logged verbatim.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns an attribute that redacts value unless key is allowlisted.
// Empty values are kept so missing credentials remain visible.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
