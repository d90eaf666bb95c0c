package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_ParticipantKey_Ignores_Order_And_Duplicates(t *testing.T) {
	req := require.New(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	key1 := ParticipantKey([]uuid.UUID{a, b, c})
	key2 := ParticipantKey([]uuid.UUID{c, a, b})
	key3 := ParticipantKey([]uuid.UUID{a, a, b, c, c})

	req.Equal(key1, key2)
	req.Equal(key1, key3)
}

func Test_ParticipantKey_Differs_For_Different_Sets(t *testing.T) {
	req := require.New(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	req.NotEqual(ParticipantKey([]uuid.UUID{a, b}), ParticipantKey([]uuid.UUID{a, c}))
	req.NotEqual(ParticipantKey([]uuid.UUID{a, b}), ParticipantKey([]uuid.UUID{a, b, c}))
}

func Test_CanonicalParticipants_Sorted_And_Unique(t *testing.T) {
	req := require.New(t)
	a, b := uuid.New(), uuid.New()

	canonical := CanonicalParticipants([]uuid.UUID{b, a, b, a})
	req.Len(canonical, 2)
	req.True(canonical[0].String() < canonical[1].String())
}

func Test_Status_Advances_Forward_Only(t *testing.T) {
	req := require.New(t)

	req.True(StatusSent.CanAdvanceTo(StatusDelivered))
	req.True(StatusSent.CanAdvanceTo(StatusRead))
	req.True(StatusDelivered.CanAdvanceTo(StatusRead))

	req.False(StatusRead.CanAdvanceTo(StatusDelivered))
	req.False(StatusDelivered.CanAdvanceTo(StatusSent))
	req.False(StatusSent.CanAdvanceTo(StatusSent))
	req.False(StatusSent.CanAdvanceTo(Status("archived")))
}
