package models

import "time"

// Conversation is a provider-side chat session reused across a user's
// entries. Timestamp is the last-touched time used for staleness.
type Conversation struct {
	ID        string
	UserID    string
	Created   time.Time
	Timestamp time.Time
}

// IsStale reports whether the session was last touched more than maxAge
// before now.
func (c *Conversation) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(c.Timestamp) > maxAge
}
