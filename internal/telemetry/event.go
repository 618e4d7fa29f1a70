package telemetry

import (
	"encoding/json"
	"time"
)

// Security event types. Audit actions share these names.
const (
	EventDeviceRegistered   = "device_registered"
	EventDeviceRemoved      = "device_removed"
	EventDeviceLimitReached = "device_limit_reached"
	EventSessionCreated     = "session_created"
	EventSessionForced      = "session_forced"
	EventSessionEnded       = "session_ended"
	EventSessionExpired     = "session_expired"
	EventConcurrentDenied   = "concurrent_denied"
	EventGateOutcome        = "gate_outcome"
)

// SourceServer marks events produced by the HTTP API.
const SourceServer = "server"

// Event is a security event. It is serialized as JSON onto the event stream and read back by the worker.
type Event struct {
	ID                string          `json:"id,omitempty"`
	AccountID         string          `json:"accountId"`
	DeviceFingerprint string          `json:"deviceFingerprint,omitempty"`
	SessionID         string          `json:"sessionId,omitempty"`
	EventType         string          `json:"eventType"`
	Source            string          `json:"source"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// NewEvent returns a server-sourced event stamped with the current time. metadata may be nil;
// values that fail to marshal are dropped.
func NewEvent(accountID, eventType string, metadata map[string]any) *Event {
	ev := &Event{
		AccountID: accountID,
		EventType: eventType,
		Source:    SourceServer,
		CreatedAt: time.Now().UTC(),
	}
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			ev.Metadata = b
		}
	}
	return ev
}
