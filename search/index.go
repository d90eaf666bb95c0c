// Package search maintains a Bluge full-text index over message bodies.
// The index is a read-model: BadgerDB stays the source of truth and search
// hits are resolved back through the ledger, so soft-deleted messages drop
// out even before the index catches up.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"courier/domain"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Open creates or reopens an on-disk index at path.
func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("open bluge index: %w", err)
	}
	return &Index{writer: writer, log: log}, nil
}

// OpenInMemory backs the index with memory only. Used in tests and when no
// index path is configured.
func OpenInMemory(log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, fmt.Errorf("open in-memory bluge index: %w", err)
	}
	return &Index{writer: writer, log: log}, nil
}

// IndexMessage upserts one message document.
func (ix *Index) IndexMessage(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("body", message.Body)).
		AddField(bluge.NewKeywordField("conversation_id", message.ConversationID.String()))
	return ix.writer.Update(doc.ID(), doc)
}

// RemoveMessage drops a message document, e.g. after a soft-delete.
func (ix *Index) RemoveMessage(id uuid.UUID) error {
	doc := bluge.NewDocument(id.String())
	return ix.writer.Delete(doc.ID())
}

// Search returns the IDs of the best-matching messages of one conversation.
func (ix *Index) Search(ctx context.Context, conversationID uuid.UUID, terms string, limit int) ([]uuid.UUID, error) {
	reader, err := ix.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(conversationID.String()).SetField("conversation_id")).
		AddMust(bluge.NewMatchQuery(terms).SetField("body"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	var ids []uuid.UUID
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					ids = append(ids, id)
				} else {
					ix.log.Warn("unparsable document id in index", "value", string(value))
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (ix *Index) Close() error {
	return ix.writer.Close()
}
