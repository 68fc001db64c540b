package repo

import "time"

// PendingStatusRepo tracks users whose next message is status text
type PendingStatusRepo interface {
	// SetPending marks key as pending until now+ttl, replacing any previous marker
	SetPending(key string, ttl time.Duration)

	// ConsumeIfPending reports whether key had a live marker and removes it
	ConsumeIfPending(key string) bool

	// Sweep drops expired markers and returns how many were removed
	Sweep() int
}
