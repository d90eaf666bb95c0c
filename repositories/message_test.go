package repositories

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"courier/domain"
	apperrors "courier/errors"
)

func newMessage(conversationID uuid.UUID, body string) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       uuid.New(),
		Body:           body,
		Status:         domain.StatusSent,
	}
}

func Test_Append_Assigns_Strictly_Increasing_Timestamps(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	conversation := uuid.New()

	// Freeze the clock: every append sees the same wall time, so the
	// ledger must advance timestamps on its own.
	frozen := time.Now().UTC()
	repo.now = func() time.Time { return frozen }

	var appended []domain.Message
	for i := 0; i < 5; i++ {
		m, err := repo.Append(newMessage(conversation, "hello"))
		req.NoError(err)
		appended = append(appended, m)
	}

	for i := 1; i < len(appended); i++ {
		req.True(appended[i].SentAt.After(appended[i-1].SentAt),
			"timestamp %d not strictly after its predecessor", i)
		req.Equal(appended[i-1].Seq+1, appended[i].Seq)
	}
}

func Test_List_Returns_Newest_First(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	conversation := uuid.New()

	bodies := []string{"first", "second", "third"}
	for _, body := range bodies {
		_, err := repo.Append(newMessage(conversation, body))
		req.NoError(err)
	}

	messages, err := repo.List(conversation, domain.MessageFilter{})
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("third", messages[0].Body)
	req.Equal("second", messages[1].Body)
	req.Equal("first", messages[2].Body)
	for i := 1; i < len(messages); i++ {
		req.True(messages[i-1].SentAt.After(messages[i].SentAt))
	}
}

func Test_List_Applies_Limit(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	conversation := uuid.New()

	for i := 0; i < 10; i++ {
		_, err := repo.Append(newMessage(conversation, "msg"))
		req.NoError(err)
	}

	messages, err := repo.List(conversation, domain.MessageFilter{Limit: 4})
	req.NoError(err)
	req.Len(messages, 4)
}

func Test_List_Caps_Oversized_Limit(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	conversation := uuid.New()

	_, err := repo.Append(newMessage(conversation, "msg"))
	req.NoError(err)

	// A limit above the cap is clamped rather than rejected.
	messages, err := repo.List(conversation, domain.MessageFilter{Limit: 1_000_000})
	req.NoError(err)
	req.Len(messages, 1)
}

func Test_List_Filters_By_Status(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	conversation := uuid.New()

	read, err := repo.Append(newMessage(conversation, "read me"))
	req.NoError(err)
	_, err = repo.Append(newMessage(conversation, "still sent"))
	req.NoError(err)
	req.NoError(repo.SetStatus(read.ID, domain.StatusRead))

	messages, err := repo.List(conversation, domain.MessageFilter{Status: lo.ToPtr(domain.StatusRead)})
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(read.ID, messages[0].ID)
}

func Test_List_Filters_By_SentAfter(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	conversation := uuid.New()

	older, err := repo.Append(newMessage(conversation, "older"))
	req.NoError(err)
	newer, err := repo.Append(newMessage(conversation, "newer"))
	req.NoError(err)

	messages, err := repo.List(conversation, domain.MessageFilter{SentAfter: lo.ToPtr(older.SentAt)})
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(newer.ID, messages[0].ID)
}

func Test_SoftDeleted_Message_Drops_Out_Of_Reads(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	conversation := uuid.New()

	keep, err := repo.Append(newMessage(conversation, "keep"))
	req.NoError(err)
	drop, err := repo.Append(newMessage(conversation, "drop"))
	req.NoError(err)
	req.NoError(repo.SoftDelete(drop.ID))

	messages, err := repo.List(conversation, domain.MessageFilter{})
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(keep.ID, messages[0].ID)

	last, err := repo.Last(conversation)
	req.NoError(err)
	req.NotNil(last)
	req.Equal(keep.ID, last.ID)
}

func Test_Last_On_Empty_Ledger(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())

	last, err := repo.Last(uuid.New())
	req.NoError(err)
	req.Nil(last)
}

func Test_Conversations_Have_Independent_Ledgers(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	convA, convB := uuid.New(), uuid.New()

	_, err := repo.Append(newMessage(convA, "in A"))
	req.NoError(err)
	_, err = repo.Append(newMessage(convB, "in B"))
	req.NoError(err)

	messages, err := repo.List(convA, domain.MessageFilter{})
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("in A", messages[0].Body)
}

func Test_Concurrent_Appends_Keep_Ordering_Stable(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())
	conversation := uuid.New()
	const writers = 12

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Append(newMessage(conversation, "race"))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		req.NoError(err)
	}

	messages, err := repo.List(conversation, domain.MessageFilter{})
	req.NoError(err)
	req.Len(messages, writers)
	for i := 1; i < len(messages); i++ {
		req.True(messages[i-1].SentAt.After(messages[i].SentAt),
			"duplicate or unordered timestamp at position %d", i)
	}
}

func Test_GetByID_Unknown_Message(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), slog.Default())

	_, err := repo.GetByID(uuid.New())
	req.ErrorIs(err, apperrors.ErrNotFound)
}
