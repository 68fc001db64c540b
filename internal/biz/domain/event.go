package domain

import "time"

// EventType is one of the canonical attendance actions
type EventType string

const (
	EventShiftStart EventType = "SHIFT_START"
	EventBreakStart EventType = "BREAK_START"
	EventBreakEnd   EventType = "BREAK_END"
	EventShiftEnd   EventType = "SHIFT_END"
	EventStatus     EventType = "STATUS"
)

// EventTypes lists every canonical event type in declaration order
var EventTypes = []EventType{
	EventShiftStart,
	EventBreakStart,
	EventBreakEnd,
	EventShiftEnd,
	EventStatus,
}

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// AttendanceEvent is a persisted event as seen by the summary and export paths
type AttendanceEvent struct {
	CreatedAt time.Time
	Type      EventType
	UserName  string
	Text      string // Only set for STATUS events
}

// NewEvent is an event ready to be persisted
type NewEvent struct {
	ID              string
	ChatID          string
	UserID          string
	Type            EventType
	Text            string
	Provider        Provider
	SourceMessageID string
	RawPayload      []byte
	CreatedAt       time.Time
}
