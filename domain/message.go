// Package domain contains core concepts of the messaging system.
// This file defines Message records and their ordering rules.
// Messages are append-only and validated before they reach the ledger.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// rank orders statuses for the forward-only transition rule.
func (s Status) rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

func (s Status) Valid() bool {
	return s.rank() >= 0
}

// CanAdvanceTo reports whether a transition to next is allowed.
// Statuses only move forward: sent -> delivered -> read.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.Valid() && next.rank() > s.rank()
}

// Message is one entry of a conversation ledger. SentAt is assigned by the
// store at the single point of durable write and is strictly greater than
// any prior message of the same conversation; Seq breaks ties so list
// ordering is reproducible.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Body           string // sanitized and censored before persisting
	Lang           string // detected language tag, informational only
	SentAt         time.Time
	Seq            uint64
	Status         Status
	DeletedAt      *time.Time
}

func (m Message) Active() bool {
	return m.DeletedAt == nil
}
