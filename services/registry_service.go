package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"courier/domain"
	apperrors "courier/errors"
	"courier/repositories"
)

type IRegistryService interface {
	Create(ctx context.Context, participantEmails []string, requesterEmail string) (domain.Conversation, error)
	GetOrCreate(ctx context.Context, participantIDs []uuid.UUID) (domain.Conversation, error)
	SoftDeleteConversation(ctx context.Context, id uuid.UUID) error
}

// RegistryService creates and deduplicates conversations. Creation is
// idempotent over the canonical participant set: set-equal requests always
// resolve to the same conversation.
type RegistryService struct {
	users         repositories.IUserRepository
	conversations repositories.IConversationRepository
	log           *slog.Logger
}

func NewRegistryService(users repositories.IUserRepository, conversations repositories.IConversationRepository, log *slog.Logger) *RegistryService {
	return &RegistryService{users: users, conversations: conversations, log: log}
}

var _ IRegistryService = (*RegistryService)(nil)

// Create resolves participant emails (the requester always included) and
// delegates to GetOrCreate. Every unresolved or soft-deleted address is
// named in the returned error.
func (s *RegistryService) Create(ctx context.Context, participantEmails []string, requesterEmail string) (domain.Conversation, error) {
	emails := lo.Uniq(lo.Map(append(participantEmails, requesterEmail), func(e string, _ int) string {
		return domain.NormalizeEmail(e)
	}))

	found, err := s.users.FindActiveByEmails(emails)
	if err != nil {
		return domain.Conversation{}, err
	}
	if len(found) != len(emails) {
		resolved := lo.Map(found, func(u domain.User, _ int) string { return u.Email })
		missing, _ := lo.Difference(emails, resolved)
		sort.Strings(missing)
		return domain.Conversation{}, fmt.Errorf("%w: users not found or deleted: %s",
			apperrors.ErrNotFound, strings.Join(missing, ", "))
	}

	ids := lo.Map(found, func(u domain.User, _ int) uuid.UUID { return u.ID })
	return s.GetOrCreate(ctx, ids)
}

// GetOrCreate canonicalizes the participant set and returns the matching
// active conversation, creating it when none exists. Safe under concurrent
// callers: at most one conversation per canonical set.
func (s *RegistryService) GetOrCreate(_ context.Context, participantIDs []uuid.UUID) (domain.Conversation, error) {
	canonical := domain.CanonicalParticipants(participantIDs)
	if len(canonical) < 2 {
		return domain.Conversation{}, fmt.Errorf("%w: a conversation needs at least 2 participants, got %d",
			apperrors.ErrValidation, len(canonical))
	}

	conversation, created, err := s.conversations.GetOrCreate(canonical)
	if err != nil {
		return domain.Conversation{}, err
	}
	if created {
		s.log.Info("conversation created",
			"conversation", conversation.ID,
			"participants", len(conversation.ParticipantIDs))
	}
	return conversation, nil
}

func (s *RegistryService) SoftDeleteConversation(_ context.Context, id uuid.UUID) error {
	return s.conversations.SoftDelete(id)
}
