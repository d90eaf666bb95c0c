package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"courier/domain"
	apperrors "courier/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newUser(email string) domain.User {
	return domain.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      domain.RoleGuest,
		CreatedAt: time.Now().UTC(),
	}
}

func Test_Create_And_Find_By_Email(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), slog.Default())

	user := newUser("Ada@X.com")
	req.NoError(repo.Create(user))

	// Lookup is case-insensitive: stored lowercase, matched lowercase.
	found, err := repo.FindActiveByEmails([]string{"ADA@x.COM"})
	req.NoError(err)
	req.Len(found, 1)
	req.Equal(user.ID, found[0].ID)
	req.Equal("ada@x.com", found[0].Email)
}

func Test_Create_Rejects_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), slog.Default())

	req.NoError(repo.Create(newUser("a@x.com")))
	err := repo.Create(newUser("A@X.COM"))
	req.ErrorIs(err, apperrors.ErrValidation)
}

func Test_FindActiveByEmails_Returns_Partial_Results(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), slog.Default())

	req.NoError(repo.Create(newUser("a@x.com")))
	req.NoError(repo.Create(newUser("b@x.com")))

	found, err := repo.FindActiveByEmails([]string{"a@x.com", "ghost@x.com", "b@x.com"})
	req.NoError(err)
	req.Len(found, 2)
	emails := lo.Map(found, func(u domain.User, _ int) string { return u.Email })
	req.ElementsMatch([]string{"a@x.com", "b@x.com"}, emails)
}

func Test_SoftDeleted_User_Disappears_From_Lookup(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), slog.Default())

	user := newUser("gone@x.com")
	req.NoError(repo.Create(user))
	req.NoError(repo.SoftDelete(user.ID))

	found, err := repo.FindActiveByEmails([]string{"gone@x.com"})
	req.NoError(err)
	req.Empty(found)

	// The record itself survives, only stamped.
	stored, err := repo.GetByID(user.ID)
	req.NoError(err)
	req.False(stored.Active())
}

func Test_Update_Moves_Email_Index(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), slog.Default())

	user := newUser("old@x.com")
	req.NoError(repo.Create(user))

	user.Email = "new@x.com"
	req.NoError(repo.Update(user))

	found, err := repo.FindActiveByEmails([]string{"old@x.com"})
	req.NoError(err)
	req.Empty(found)

	found, err = repo.FindActiveByEmails([]string{"new@x.com"})
	req.NoError(err)
	req.Len(found, 1)
}

func Test_Update_Rejects_Email_Of_Another_User(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), slog.Default())

	req.NoError(repo.Create(newUser("taken@x.com")))
	user := newUser("mine@x.com")
	req.NoError(repo.Create(user))

	user.Email = "taken@x.com"
	req.ErrorIs(repo.Update(user), apperrors.ErrValidation)
}

func Test_Update_Keeping_Own_Email_Is_Allowed(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), slog.Default())

	user := newUser("same@x.com")
	req.NoError(repo.Create(user))

	user.Phone = "+33123456789"
	req.NoError(repo.Update(user))

	stored, err := repo.GetByID(user.ID)
	req.NoError(err)
	req.Equal("+33123456789", stored.Phone)
	req.Equal("same@x.com", stored.Email)
}

func Test_GetByID_Unknown_User(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t), slog.Default())

	_, err := repo.GetByID(uuid.New())
	req.ErrorIs(err, apperrors.ErrNotFound)
}
