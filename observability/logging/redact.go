package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Public fields. Addresses, actions and reasons are on-ledger data; headers,
// tokens and secrets are not.
var redactionAllowlist = map[string]struct{}{
	"service":    {},
	"env":        {},
	"component":  {},
	"module":     {},
	"operation":  {},
	"action":     {},
	"reason":     {},
	"asset":      {},
	"account":    {},
	"market":     {},
	"error":      {},
	"route":      {},
	"status":     {},
	"request_id": {},
	"subject":    {},
}

func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// RedactionAllowlist returns the allowlisted keys in sorted order.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskField keeps value for allowlisted keys and blank values; anything else
// is logged as RedactedValue.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
