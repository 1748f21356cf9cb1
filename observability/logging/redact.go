package logging

import (
	"log/slog"
	"strings"
)

// Redacted stands in for the value of a sensitive attribute.
const Redacted = "[REDACTED]"

// sensitiveKeys are attribute keys whose values never reach a log line.
// Swap secrets are published on withdrawal, but only through events.
var sensitiveKeys = map[string]struct{}{
	"secret":        {},
	"secrets":       {},
	"preimage":      {},
	"token":         {},
	"authorization": {},
	"passphrase":    {},
	"jwt_secret":    {},
}

// Sensitive reports whether values logged under key are redacted. Matching
// ignores case.
func Sensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// redactAttr masks attr when its key is sensitive. Blank values pass
// through so a missing secret still shows as missing.
func redactAttr(attr slog.Attr) slog.Attr {
	if !Sensitive(attr.Key) || strings.TrimSpace(attr.Value.String()) == "" {
		return attr
	}
	return slog.String(attr.Key, Redacted)
}

// MaskField builds a string attribute, redacted when key is sensitive.
func MaskField(key, value string) slog.Attr {
	return redactAttr(slog.String(key, value))
}

// Fingerprint shortens a bearer token to its first and last four characters
// so rejected requests can be correlated without logging a usable token.
// Values too short to shorten safely are redacted outright.
func Fingerprint(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case len(value) <= 12:
		return Redacted
	}
	return value[:4] + "…" + value[len(value)-4:]
}
