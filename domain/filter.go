package domain

import "time"

const (
	// DefaultMessageLimit applies when a caller does not bound its read.
	DefaultMessageLimit = 50
	// MaxMessageLimit caps caller-supplied limits to prevent unbounded scans.
	MaxMessageLimit = 200
)

// MessageFilter describes a ledger read: which statuses, since when, how many.
// The storage adapter translates it into its own scan; services never build
// store-specific queries themselves.
type MessageFilter struct {
	Status    *Status
	SentAfter *time.Time
	Limit     int
}

// Normalize applies the default and the hard cap to the limit.
func (f MessageFilter) Normalize() MessageFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultMessageLimit
	}
	if f.Limit > MaxMessageLimit {
		f.Limit = MaxMessageLimit
	}
	return f
}

// Matches reports whether a message passes the status and date criteria.
// Soft-deleted messages never match.
func (f MessageFilter) Matches(m Message) bool {
	if !m.Active() {
		return false
	}
	if f.Status != nil && m.Status != *f.Status {
		return false
	}
	if f.SentAfter != nil && !m.SentAt.After(*f.SentAfter) {
		return false
	}
	return true
}
