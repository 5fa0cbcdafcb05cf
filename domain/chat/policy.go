package chat

import "time"

// DefaultDisappearAfterSeconds applies when disappearing messages are switched
// on without a usable duration.
const DefaultDisappearAfterSeconds = 30

// Policy is the disappearing-message setting of a conversation.
type Policy struct {
	Enabled      bool
	AfterSeconds int
}

// NewPolicy normalizes a toggle request: disabled always means 0 seconds,
// enabled means at least one second.
func NewPolicy(enabled bool, seconds int) Policy {
	if !enabled {
		return Policy{}
	}
	switch {
	case seconds == 0:
		seconds = DefaultDisappearAfterSeconds
	case seconds < 1:
		seconds = 1
	}
	return Policy{Enabled: true, AfterSeconds: seconds}
}

// StampExpiry computes the expiry of a message sent at now.
// It returns nil when messages do not disappear.
func (p Policy) StampExpiry(now time.Time) *time.Time {
	if !p.Enabled || p.AfterSeconds <= 0 {
		return nil
	}
	expiresAt := now.Add(time.Duration(p.AfterSeconds) * time.Second)
	return &expiresAt
}
