//go:generate go run go.uber.org/mock/mockgen -source=cache.go -destination=../mocks/mock_cache.go -package=mocks

// Package cache defines the key-value facade used to memoize derived
// display values. The cache is an optimization only: every read path must
// stay correct when Get always misses.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMiss signals an absent or expired entry in a typed way, so callers can
// tell misses apart from transport errors.
var ErrMiss = fmt.Errorf("cache miss")

// DerivedValueTTL bounds staleness of memoized display values.
const DerivedValueTTL = time.Hour

type Cache interface {
	// Get returns the value stored at key or ErrMiss.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value at key for the given TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Delete removes the given keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// DisplayNameKey memoizes a user's full name. Invalidated on profile update.
func DisplayNameKey(userID uuid.UUID) string {
	return "user_full_name_" + userID.String()
}

// ParticipantCountKey memoizes a conversation's participant count.
// Membership is immutable after creation, so this is effectively write-once.
func ParticipantCountKey(conversationID uuid.UUID) string {
	return "conversation_participant_count_" + conversationID.String()
}
