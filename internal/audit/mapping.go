package audit

import (
	"encoding/json"
	"strings"
)

// Resources an audited action applies to.
const (
	ResourceDevice  = "device"
	ResourceSession = "session"
	ResourceGate    = "gate"
)

// ResourceFor derives the resource from an action name (e.g. device_removed -> device).
// Actions that name no known resource are attributed to the gate.
func ResourceFor(action string) string {
	prefix, _, _ := strings.Cut(action, "_")
	switch prefix {
	case ResourceDevice:
		return ResourceDevice
	case ResourceSession, "concurrent":
		return ResourceSession
	default:
		return ResourceGate
	}
}

// Metadata encodes key/value pairs as the JSON metadata string stored with an entry.
// Returns "" for no pairs or when encoding fails.
func Metadata(kv map[string]any) string {
	if len(kv) == 0 {
		return ""
	}
	b, err := json.Marshal(kv)
	if err != nil {
		return ""
	}
	return string(b)
}
