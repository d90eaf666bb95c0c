package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"courier/domain"
	apperrors "courier/errors"
	"courier/moderation"
	"courier/repositories"
	"courier/sanitize"
	"courier/search"
)

type ILedgerService interface {
	Append(ctx context.Context, conversationID, senderID uuid.UUID, rawBody string) (domain.Message, error)
	List(ctx context.Context, conversationID uuid.UUID, filter domain.MessageFilter) ([]domain.Message, error)
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
	AdvanceStatus(ctx context.Context, messageID uuid.UUID, next domain.Status) error
	SoftDeleteMessage(ctx context.Context, messageID uuid.UUID) error
	Search(ctx context.Context, conversationID uuid.UUID, terms string, limit int) ([]domain.Message, error)
}

// LedgerService is the append path and read path of conversation messages.
// Bodies are sanitized to the allowed inline markup, censored, tagged with
// a detected language, and persisted with a server-assigned monotonic
// timestamp. The Bluge index is fed best effort: an index failure never
// fails an append.
type LedgerService struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	sanitizer     *sanitize.Sanitizer
	filter        *moderation.Filter
	index         *search.Index
	log           *slog.Logger
}

func NewLedgerService(
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	sanitizer *sanitize.Sanitizer,
	filter *moderation.Filter,
	index *search.Index,
	log *slog.Logger,
) *LedgerService {
	return &LedgerService{
		conversations: conversations,
		messages:      messages,
		sanitizer:     sanitizer,
		filter:        filter,
		index:         index,
		log:           log,
	}
}

var _ ILedgerService = (*LedgerService)(nil)

func (s *LedgerService) Append(_ context.Context, conversationID, senderID uuid.UUID, rawBody string) (domain.Message, error) {
	conversation, err := s.activeConversation(conversationID)
	if err != nil {
		return domain.Message{}, err
	}
	if !conversation.HasParticipant(senderID) {
		return domain.Message{}, fmt.Errorf("%w: user %s is not a participant of conversation %s",
			apperrors.ErrPermissionDenied, senderID, conversationID)
	}
	if strings.TrimSpace(rawBody) == "" {
		return domain.Message{}, fmt.Errorf("%w: message body cannot be empty", apperrors.ErrValidation)
	}
	body := s.sanitizer.Clean(rawBody)
	if body == "" {
		return domain.Message{}, fmt.Errorf("%w: message body is empty after sanitization", apperrors.ErrValidation)
	}
	body = s.filter.Apply(body)

	message := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		Lang:           detectLang(body),
		Status:         domain.StatusSent,
	}
	appended, err := s.messages.Append(message)
	if err != nil {
		return domain.Message{}, err
	}

	if s.index != nil {
		if err := s.index.IndexMessage(appended); err != nil {
			s.log.Warn("message indexing failed", "message", appended.ID, "error", err)
		}
	}
	return appended, nil
}

func (s *LedgerService) List(_ context.Context, conversationID uuid.UUID, filter domain.MessageFilter) ([]domain.Message, error) {
	if _, err := s.activeConversation(conversationID); err != nil {
		return nil, err
	}
	return s.messages.List(conversationID, filter)
}

func (s *LedgerService) LastMessage(_ context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	if _, err := s.activeConversation(conversationID); err != nil {
		return nil, err
	}
	return s.messages.Last(conversationID)
}

// AdvanceStatus moves a message forward along sent -> delivered -> read.
// Backward or sideways transitions fail validation.
func (s *LedgerService) AdvanceStatus(_ context.Context, messageID uuid.UUID, next domain.Status) error {
	message, err := s.messages.GetByID(messageID)
	if err != nil {
		return err
	}
	if !message.Active() {
		return fmt.Errorf("%w: message %s", apperrors.ErrNotFound, messageID)
	}
	if !message.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: cannot advance status from %q to %q",
			apperrors.ErrValidation, message.Status, next)
	}
	return s.messages.SetStatus(messageID, next)
}

func (s *LedgerService) SoftDeleteMessage(_ context.Context, messageID uuid.UUID) error {
	if err := s.messages.SoftDelete(messageID); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.RemoveMessage(messageID); err != nil {
			s.log.Warn("message index removal failed", "message", messageID, "error", err)
		}
	}
	return nil
}

// Search resolves index hits back through the ledger, dropping anything
// soft-deleted since indexing.
func (s *LedgerService) Search(ctx context.Context, conversationID uuid.UUID, terms string, limit int) ([]domain.Message, error) {
	if _, err := s.activeConversation(conversationID); err != nil {
		return nil, err
	}
	if s.index == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = domain.DefaultMessageLimit
	}
	ids, err := s.index.Search(ctx, conversationID, terms, limit)
	if err != nil {
		return nil, err
	}
	var results []domain.Message
	for _, id := range ids {
		message, err := s.messages.GetByID(id)
		if err != nil {
			s.log.Warn("indexed message missing from ledger", "message", id, "error", err)
			continue
		}
		if message.Active() {
			results = append(results, message)
		}
	}
	return results, nil
}

func (s *LedgerService) activeConversation(id uuid.UUID) (domain.Conversation, error) {
	conversation, err := s.conversations.GetByID(id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !conversation.Active() {
		return domain.Conversation{}, fmt.Errorf("%w: conversation %s is deleted", apperrors.ErrNotFound, id)
	}
	return conversation, nil
}

func detectLang(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
