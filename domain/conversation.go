package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Conversation groups at least two users. The participant set is fixed at
// creation and identifies the conversation: two requests for a set-equal
// group of users must resolve to the same record.
type Conversation struct {
	ID             uuid.UUID
	ParticipantIDs []uuid.UUID // canonical: sorted, deduplicated
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

func (c Conversation) Active() bool {
	return c.DeletedAt == nil
}

func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	return lo.Contains(c.ParticipantIDs, userID)
}

// CanonicalParticipants deduplicates and sorts participant IDs so that
// order and repetition in the input never matter.
func CanonicalParticipants(ids []uuid.UUID) []uuid.UUID {
	canonical := lo.Uniq(ids)
	sort.Slice(canonical, func(i, j int) bool {
		return canonical[i].String() < canonical[j].String()
	})
	return canonical
}

// ParticipantKey derives the uniqueness key for a participant set: the hex
// SHA-256 over the canonical IDs. The storage layer enforces at most one
// active conversation per key.
func ParticipantKey(ids []uuid.UUID) string {
	h := sha256.New()
	for _, id := range CanonicalParticipants(ids) {
		h.Write(id[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
