//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"courier/domain"
	apperrors "courier/errors"
)

type IConversationRepository interface {
	GetOrCreate(participantIDs []uuid.UUID) (domain.Conversation, bool, error)
	GetByID(id uuid.UUID) (domain.Conversation, error)
	SoftDelete(id uuid.UUID) error
}

// ConversationRepository persists conversations in BadgerDB.
// Keys:
//
//	conv:{id}            -> conversation record (JSON)
//	conv_members:{hash}  -> conversation id, unique index over the
//	                        canonical participant set
//
// The members index is written inside the creating transaction; Badger's
// conflict detection guarantees that two racing creators for the same
// participant set cannot both commit.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

var _ IConversationRepository = (*ConversationRepository)(nil)

type storedConversation struct {
	ID             uuid.UUID   `json:"id"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	CreatedAt      time.Time   `json:"created_at"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
}

func conversationKey(id uuid.UUID) []byte {
	return []byte("conv:" + id.String())
}

func membersKey(participantKey string) []byte {
	return []byte("conv_members:" + participantKey)
}

// GetOrCreate returns the active conversation for the canonical participant
// set, creating it when absent. The boolean reports whether a record was
// created. A transaction that loses the creation race re-reads and returns
// the winner's conversation, so at most one record exists per set.
func (r *ConversationRepository) GetOrCreate(participantIDs []uuid.UUID) (domain.Conversation, bool, error) {
	canonical := domain.CanonicalParticipants(participantIDs)
	indexKey := membersKey(domain.ParticipantKey(canonical))

	for {
		conversation, created, err := r.getOrCreateOnce(canonical, indexKey)
		if errors.Is(err, badger.ErrConflict) {
			r.log.Debug("conversation creation raced, retrying", "members", string(indexKey))
			continue
		}
		if err != nil {
			return domain.Conversation{}, false, err
		}
		return conversation, created, nil
	}
}

func (r *ConversationRepository) getOrCreateOnce(canonical []uuid.UUID, indexKey []byte) (domain.Conversation, bool, error) {
	var result domain.Conversation
	created := false

	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey)
		if err == nil {
			var id uuid.UUID
			if err := item.Value(func(val []byte) error {
				id, err = uuid.Parse(string(val))
				return err
			}); err != nil {
				return err
			}
			existing, err := r.readConversation(txn, id)
			if err != nil {
				return err
			}
			result = toConversation(existing)
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		fresh := storedConversation{
			ID:             uuid.New(),
			ParticipantIDs: canonical,
			CreatedAt:      time.Now().UTC(),
		}
		data, err := json.Marshal(fresh)
		if err != nil {
			return err
		}
		if err := txn.Set(conversationKey(fresh.ID), data); err != nil {
			return err
		}
		if err := txn.Set(indexKey, []byte(fresh.ID.String())); err != nil {
			return err
		}
		result = toConversation(fresh)
		created = true
		return nil
	})
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return result, created, nil
}

// GetByID returns the record whether or not it is soft-deleted; callers
// decide how to treat inactive conversations.
func (r *ConversationRepository) GetByID(id uuid.UUID) (domain.Conversation, error) {
	var stored storedConversation
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		stored, err = r.readConversation(txn, id)
		return err
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return toConversation(stored), nil
}

// SoftDelete stamps the record and releases the members index, so the same
// participant set can later create a fresh conversation.
func (r *ConversationRepository) SoftDelete(id uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		stored, err := r.readConversation(txn, id)
		if err != nil {
			return err
		}
		if stored.DeletedAt != nil {
			return nil
		}
		now := time.Now().UTC()
		stored.DeletedAt = &now
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		if err := txn.Set(conversationKey(id), data); err != nil {
			return err
		}
		return txn.Delete(membersKey(domain.ParticipantKey(stored.ParticipantIDs)))
	})
}

func (r *ConversationRepository) readConversation(txn *badger.Txn, id uuid.UUID) (storedConversation, error) {
	item, err := txn.Get(conversationKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storedConversation{}, fmt.Errorf("%w: conversation %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return storedConversation{}, err
	}
	var stored storedConversation
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	})
	return stored, err
}

func toConversation(stored storedConversation) domain.Conversation {
	return domain.Conversation{
		ID:             stored.ID,
		ParticipantIDs: stored.ParticipantIDs,
		CreatedAt:      stored.CreatedAt,
		DeletedAt:      stored.DeletedAt,
	}
}
