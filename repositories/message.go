//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
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

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	List(conversationID uuid.UUID, filter domain.MessageFilter) ([]domain.Message, error)
	Last(conversationID uuid.UUID) (*domain.Message, error)
	GetByID(id uuid.UUID) (domain.Message, error)
	SetStatus(id uuid.UUID, status domain.Status) error
	SoftDelete(id uuid.UUID) error
}

// MessageRepository is the append-only per-conversation ledger, backed by
// BadgerDB. Keys:
//
//	msg:{conv}:{nanos %019d}:{seq %012d} -> message record (JSON)
//	msg_head:{conv}                      -> ledger clock (last nanos + seq)
//	msg_id:{id}                          -> full ledger key, for point updates
//
// The 19-digit zero padding keeps prefix scans in chronological order; the
// head record is read and advanced inside the append transaction, so the
// assigned timestamp is strictly greater than every earlier message of the
// conversation and the sequence number gives a deterministic tie-break.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, now: time.Now}
}

var _ IMessageRepository = (*MessageRepository)(nil)

type storedMessage struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	Body           string     `json:"body"`
	Lang           string     `json:"lang,omitempty"`
	SentAt         time.Time  `json:"sent_at"`
	Seq            uint64     `json:"seq"`
	Status         string     `json:"status"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

type ledgerHead struct {
	LastNanos int64  `json:"last_nanos"`
	LastSeq   uint64 `json:"last_seq"`
}

func messageKey(conversationID uuid.UUID, nanos int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%012d", conversationID, nanos, seq))
}

func messagePrefix(conversationID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", conversationID))
}

func headKey(conversationID uuid.UUID) []byte {
	return []byte("msg_head:" + conversationID.String())
}

func messageIDKey(id uuid.UUID) []byte {
	return []byte("msg_id:" + id.String())
}

// Append assigns the server timestamp and sequence number, then persists
// the message. Concurrent appends to the same conversation conflict on the
// head record; the loser retries with a fresh clock read.
func (r *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	for {
		appended, err := r.appendOnce(message)
		if errors.Is(err, badger.ErrConflict) {
			r.log.Debug("ledger append raced, retrying", "conversation", message.ConversationID)
			continue
		}
		if err != nil {
			return domain.Message{}, err
		}
		return appended, nil
	}
}

func (r *MessageRepository) appendOnce(message domain.Message) (domain.Message, error) {
	var result domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		head, err := r.readHead(txn, message.ConversationID)
		if err != nil {
			return err
		}

		nanos := r.now().UTC().UnixNano()
		if nanos <= head.LastNanos {
			// Clock went backwards or two appends landed in the same
			// instant: advance by 1µs to keep SentAt strictly increasing.
			nanos = head.LastNanos + int64(time.Microsecond)
		}
		head.LastNanos = nanos
		head.LastSeq++

		message.SentAt = time.Unix(0, nanos).UTC()
		message.Seq = head.LastSeq

		data, err := json.Marshal(fromMessage(message))
		if err != nil {
			return err
		}
		key := messageKey(message.ConversationID, nanos, message.Seq)
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set(messageIDKey(message.ID), key); err != nil {
			return err
		}
		headData, err := json.Marshal(head)
		if err != nil {
			return err
		}
		if err := txn.Set(headKey(message.ConversationID), headData); err != nil {
			return err
		}
		result = message
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return result, nil
}

// List scans the conversation newest-first and applies the filter. The scan
// stops early once timestamps fall at or below SentAfter, since every older
// entry fails the filter too.
func (r *MessageRepository) List(conversationID uuid.UUID, filter domain.MessageFilter) ([]domain.Message, error) {
	filter = filter.Normalize()
	var messages []domain.Message

	err := r.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this conversation.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == filter.Limit {
				break
			}
			var stored storedMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return err
			}
			message := toMessage(stored)
			if filter.SentAfter != nil && !message.SentAt.After(*filter.SentAfter) {
				break
			}
			if filter.Matches(message) {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// Last returns the newest non-deleted message, or nil when the ledger holds
// none.
func (r *MessageRepository) Last(conversationID uuid.UUID) (*domain.Message, error) {
	messages, err := r.List(conversationID, domain.MessageFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0], nil
}

func (r *MessageRepository) GetByID(id uuid.UUID) (domain.Message, error) {
	var stored storedMessage
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		stored, err = r.readByID(txn, id)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(stored), nil
}

// SetStatus rewrites the message record in place; the ledger key and the
// assigned timestamp never change.
func (r *MessageRepository) SetStatus(id uuid.UUID, status domain.Status) error {
	return r.updateByID(id, func(stored *storedMessage) {
		stored.Status = string(status)
	})
}

// SoftDelete stamps the record; it stays on disk and keeps its position in
// the ledger but drops out of every read.
func (r *MessageRepository) SoftDelete(id uuid.UUID) error {
	now := time.Now().UTC()
	return r.updateByID(id, func(stored *storedMessage) {
		if stored.DeletedAt == nil {
			stored.DeletedAt = &now
		}
	})
}

func (r *MessageRepository) updateByID(id uuid.UUID, mutate func(*storedMessage)) error {
	return r.db.Update(func(txn *badger.Txn) error {
		stored, err := r.readByID(txn, id)
		if err != nil {
			return err
		}
		mutate(&stored)
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return txn.Set(messageKey(stored.ConversationID, stored.SentAt.UnixNano(), stored.Seq), data)
	})
}

func (r *MessageRepository) readByID(txn *badger.Txn, id uuid.UUID) (storedMessage, error) {
	indexItem, err := txn.Get(messageIDKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storedMessage{}, fmt.Errorf("%w: message %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return storedMessage{}, err
	}
	var key []byte
	if err := indexItem.Value(func(val []byte) error {
		key = append([]byte{}, val...)
		return nil
	}); err != nil {
		return storedMessage{}, err
	}
	item, err := txn.Get(key)
	if err != nil {
		return storedMessage{}, fmt.Errorf("dangling message index for %s: %w", id, err)
	}
	var stored storedMessage
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	})
	return stored, err
}

func (r *MessageRepository) readHead(txn *badger.Txn, conversationID uuid.UUID) (ledgerHead, error) {
	item, err := txn.Get(headKey(conversationID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ledgerHead{}, nil
	}
	if err != nil {
		return ledgerHead{}, err
	}
	var head ledgerHead
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &head)
	})
	return head, err
}

func fromMessage(message domain.Message) storedMessage {
	return storedMessage{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Body:           message.Body,
		Lang:           message.Lang,
		SentAt:         message.SentAt,
		Seq:            message.Seq,
		Status:         string(message.Status),
		DeletedAt:      message.DeletedAt,
	}
}

func toMessage(stored storedMessage) domain.Message {
	return domain.Message{
		ID:             stored.ID,
		ConversationID: stored.ConversationID,
		SenderID:       stored.SenderID,
		Body:           stored.Body,
		Lang:           stored.Lang,
		SentAt:         stored.SentAt,
		Seq:            stored.Seq,
		Status:         domain.Status(stored.Status),
		DeletedAt:      stored.DeletedAt,
	}
}
