package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"courier/cache"
	"courier/domain"
	apperrors "courier/errors"
	"courier/repositories"
)

// DeletedUserName replaces the display name of soft-deleted senders in
// rendered views. Their messages stay visible, their identity does not.
const DeletedUserName = "Deleted user"

type MessageView struct {
	ID         uuid.UUID `json:"id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	Lang       string    `json:"lang,omitempty"`
	SentAt     time.Time `json:"sent_at"`
	Status     string    `json:"status"`
}

type ConversationView struct {
	ID               uuid.UUID    `json:"id"`
	ParticipantCount int          `json:"participant_count"`
	ParticipantNames []string     `json:"participant_names"`
	LastMessage      *MessageView `json:"last_message,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

type IProjector interface {
	ConversationSummary(ctx context.Context, conversationID uuid.UUID) (ConversationView, error)
	Timeline(ctx context.Context, conversationID uuid.UUID, filter domain.MessageFilter) ([]MessageView, error)
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

// Projector builds read models over the directory, registry and ledger.
// Display names and participant counts are served cache-aside: read through
// the cache, fall back to the repository on a miss, write the value back
// with a TTL. A broken cache degrades to repository reads, never to errors.
type Projector struct {
	users         repositories.IUserRepository
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	cache         cache.Cache
	log           *slog.Logger
}

func NewProjector(
	users repositories.IUserRepository,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	c cache.Cache,
	log *slog.Logger,
) *Projector {
	return &Projector{
		users:         users,
		conversations: conversations,
		messages:      messages,
		cache:         c,
		log:           log,
	}
}

var _ IProjector = (*Projector)(nil)

func (p *Projector) ConversationSummary(ctx context.Context, conversationID uuid.UUID) (ConversationView, error) {
	conversation, err := p.conversations.GetByID(conversationID)
	if err != nil {
		return ConversationView{}, err
	}
	if !conversation.Active() {
		return ConversationView{}, fmt.Errorf("%w: conversation %s is deleted", apperrors.ErrNotFound, conversationID)
	}

	names := lo.Map(conversation.ParticipantIDs, func(id uuid.UUID, _ int) string {
		name, err := p.DisplayName(ctx, id)
		if err != nil {
			p.log.Warn("display name resolution failed", "user", id, "error", err)
			return DeletedUserName
		}
		return name
	})

	view := ConversationView{
		ID:               conversation.ID,
		ParticipantCount: p.participantCount(ctx, conversation),
		ParticipantNames: names,
		CreatedAt:        conversation.CreatedAt,
	}

	last, err := p.messages.Last(conversationID)
	if err != nil {
		return ConversationView{}, err
	}
	if last != nil {
		mv := p.messageView(ctx, *last)
		view.LastMessage = &mv
	}
	return view, nil
}

// Timeline renders the newest-first message list of a conversation with
// sender names resolved.
func (p *Projector) Timeline(ctx context.Context, conversationID uuid.UUID, filter domain.MessageFilter) ([]MessageView, error) {
	conversation, err := p.conversations.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.Active() {
		return nil, fmt.Errorf("%w: conversation %s is deleted", apperrors.ErrNotFound, conversationID)
	}
	messages, err := p.messages.List(conversationID, filter)
	if err != nil {
		return nil, err
	}
	return lo.Map(messages, func(m domain.Message, _ int) MessageView {
		return p.messageView(ctx, m)
	}), nil
}

// DisplayName resolves a user's full name, cache-aside with a one hour TTL.
func (p *Projector) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	key := cache.DisplayNameKey(userID)
	if name, err := p.cache.Get(ctx, key); err == nil {
		return name, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		p.log.Warn("display name cache read failed", "user", userID, "error", err)
	}

	user, err := p.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	name := user.FullName()
	if !user.Active() {
		name = DeletedUserName
	}
	if err := p.cache.Set(ctx, key, name, cache.DerivedValueTTL); err != nil {
		p.log.Warn("display name cache write failed", "user", userID, "error", err)
	}
	return name, nil
}

// The participant set of a conversation never changes after creation, so the
// cached count can only go stale through conversation deletion, where the
// whole view disappears anyway.
func (p *Projector) participantCount(ctx context.Context, conversation domain.Conversation) int {
	key := cache.ParticipantCountKey(conversation.ID)
	if raw, err := p.cache.Get(ctx, key); err == nil {
		if count, err := strconv.Atoi(raw); err == nil {
			return count
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		p.log.Warn("participant count cache read failed", "conversation", conversation.ID, "error", err)
	}

	count := len(conversation.ParticipantIDs)
	if err := p.cache.Set(ctx, key, strconv.Itoa(count), cache.DerivedValueTTL); err != nil {
		p.log.Warn("participant count cache write failed", "conversation", conversation.ID, "error", err)
	}
	return count
}

func (p *Projector) messageView(ctx context.Context, m domain.Message) MessageView {
	sender, err := p.DisplayName(ctx, m.SenderID)
	if err != nil {
		sender = DeletedUserName
	}
	return MessageView{
		ID:         m.ID,
		SenderName: sender,
		Body:       m.Body,
		Lang:       m.Lang,
		SentAt:     m.SentAt,
		Status:     string(m.Status),
	}
}
