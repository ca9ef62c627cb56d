package models

import "time"

const (
	EventNavigate   = "navigate"
	EventLogin      = "login"
	EventLogout     = "logout"
	EventConnect    = "device_connect"
	EventDisconnect = "device_disconnect"
	EventExport     = "export"
)

// SessionEvent is one archived session action.
type SessionEvent struct {
	EventID   string    `json:"eventId"`
	SessionID string    `json:"sessionId"`
	EventType string    `json:"eventType"`
	Page      Page      `json:"page"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

type DetectionCountByTime struct {
	Time      time.Time     `json:"time"`
	Type      *MaterialType `json:"type,omitempty"`
	Records   uint64        `json:"records"`
	Particles uint64        `json:"particles"`
}
