package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"courier/domain"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := OpenInMemory(slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func indexed(t *testing.T, ix *Index, conversationID uuid.UUID, body string) domain.Message {
	t.Helper()
	m := domain.Message{ID: uuid.New(), ConversationID: conversationID, Body: body}
	require.NoError(t, ix.IndexMessage(m))
	return m
}

func Test_Search_Finds_Matching_Bodies(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ix := openTestIndex(t)
	conversation := uuid.New()

	hit := indexed(t, ix, conversation, "we should migrate the database to badger")
	indexed(t, ix, conversation, "lunch at noon?")

	ids, err := ix.Search(ctx, conversation, "database", 10)
	req.NoError(err)
	req.Len(ids, 1)
	req.Equal(hit.ID, ids[0])
}

func Test_Search_Is_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ix := openTestIndex(t)
	conversation := uuid.New()

	indexed(t, ix, conversation, "Deployment Strategy Review")

	for _, terms := range []string{"deployment", "DEPLOYMENT", "Deployment"} {
		ids, err := ix.Search(ctx, conversation, terms, 10)
		req.NoError(err)
		req.Len(ids, 1, "terms: %s", terms)
	}
}

func Test_Search_Isolates_Conversations(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ix := openTestIndex(t)
	convA, convB := uuid.New(), uuid.New()

	inA := indexed(t, ix, convA, "secret project alpha")
	indexed(t, ix, convB, "secret project beta")

	ids, err := ix.Search(ctx, convA, "secret", 10)
	req.NoError(err)
	req.Len(ids, 1)
	req.Equal(inA.ID, ids[0])
}

func Test_Removed_Message_No_Longer_Matches(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ix := openTestIndex(t)
	conversation := uuid.New()

	m := indexed(t, ix, conversation, "delete me soon")
	req.NoError(ix.RemoveMessage(m.ID))

	ids, err := ix.Search(ctx, conversation, "delete", 10)
	req.NoError(err)
	req.Empty(ids)
}

func Test_Search_Empty_Index(t *testing.T) {
	req := require.New(t)
	ix := openTestIndex(t)

	ids, err := ix.Search(context.Background(), uuid.New(), "anything", 10)
	req.NoError(err)
	req.Empty(ids)
}
