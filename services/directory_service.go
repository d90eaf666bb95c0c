package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"courier/cache"
	"courier/domain"
	apperrors "courier/errors"
	"courier/repositories"
)

var validate = validator.New()

type IDirectoryService interface {
	Register(ctx context.Context, input RegisterInput) (domain.User, error)
	FindActiveByEmails(ctx context.Context, emails []string) ([]domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (domain.User, error)
	SoftDeleteUser(ctx context.Context, userID uuid.UUID) error
}

// DirectoryService is the user directory: lookup by email, partial profile
// updates and soft-delete. Registration here is plain persistence; account
// credentials and authentication live outside this module.
type DirectoryService struct {
	users repositories.IUserRepository
	cache cache.Cache
	log   *slog.Logger
}

func NewDirectoryService(users repositories.IUserRepository, c cache.Cache, log *slog.Logger) *DirectoryService {
	return &DirectoryService{users: users, cache: c, log: log}
}

var _ IDirectoryService = (*DirectoryService)(nil)

type RegisterInput struct {
	Email     string `validate:"required,email"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Phone     string `validate:"omitempty,e164"`
	Role      domain.Role
}

// ProfileUpdate carries a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
}

func (s *DirectoryService) Register(_ context.Context, input RegisterInput) (domain.User, error) {
	if err := validate.Struct(input); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleGuest
	}
	user := domain.User{
		ID:        uuid.New(),
		Email:     domain.NormalizeEmail(input.Email),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// FindActiveByEmails normalizes and deduplicates the input, then resolves
// it against the directory. Missing and soft-deleted addresses are simply
// absent from the result.
func (s *DirectoryService) FindActiveByEmails(_ context.Context, emails []string) ([]domain.User, error) {
	normalized := lo.Uniq(lo.Map(emails, func(e string, _ int) string {
		return domain.NormalizeEmail(e)
	}))
	return s.users.FindActiveByEmails(normalized)
}

// UpdateProfile applies the non-nil fields, re-validating the email when it
// changes, and invalidates the cached display name as a side effect.
func (s *DirectoryService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (domain.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	if !user.Active() {
		return domain.User{}, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
	}

	if update.Email != nil {
		email := domain.NormalizeEmail(*update.Email)
		if err := validate.Var(email, "required,email"); err != nil {
			return domain.User{}, fmt.Errorf("%w: invalid email %q", apperrors.ErrValidation, *update.Email)
		}
		user.Email = email
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.Phone != nil {
		if *update.Phone != "" {
			if err := validate.Var(*update.Phone, "e164"); err != nil {
				return domain.User{}, fmt.Errorf("%w: invalid phone %q", apperrors.ErrValidation, *update.Phone)
			}
		}
		user.Phone = *update.Phone
	}

	if err := s.users.Update(user); err != nil {
		return domain.User{}, err
	}
	s.invalidateDisplayName(ctx, userID)
	return user, nil
}

func (s *DirectoryService) SoftDeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.SoftDelete(userID); err != nil {
		return err
	}
	s.invalidateDisplayName(ctx, userID)
	return nil
}

// Cache invalidation is best effort: a failure only extends staleness up to
// the TTL, so it is logged and swallowed.
func (s *DirectoryService) invalidateDisplayName(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, cache.DisplayNameKey(userID)); err != nil {
		s.log.Warn("display name cache invalidation failed", "user", userID, "error", err)
	}
}
