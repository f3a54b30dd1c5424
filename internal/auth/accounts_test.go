package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/database/users"
	"github.com/mrlokans/bookshare/internal/entities"
)

type recordingNotifier struct {
	sent []*entities.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n *entities.Notification) {
	r.sent = append(r.sent, n)
}

type accountsFixture struct {
	svc      *Service
	accounts *Accounts
	repo     *users.Repository
	notifier *recordingNotifier
	reader   *entities.User
	admin    *entities.User
}

func setupAccounts(t *testing.T) *accountsFixture {
	t.Helper()
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4})
	repo := users.NewRepository(db)
	notifier := &recordingNotifier{}

	reader, err := svc.Register(registration("ada", "ada@example.com"))
	require.NoError(t, err)
	admin, err := svc.CreateUser("admin", "admin@example.com", "adminpass", entities.UserRoleAdmin)
	require.NoError(t, err)

	return &accountsFixture{
		svc:      svc,
		accounts: NewAccounts(repo, notifier),
		repo:     repo,
		notifier: notifier,
		reader:   reader,
		admin:    admin,
	}
}

func TestAccounts_UpdateProfile(t *testing.T) {
	f := setupAccounts(t)
	ctx := context.Background()

	err := f.accounts.UpdateProfile(ctx, f.reader, users.ProfileUpdate{
		FirstName:      " Augusta ",
		LastName:       "King",
		Email:          "augusta@example.com",
		Bio:            "Poetical science.",
		FavoriteGenres: "science,poetry",
	})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", f.reader.FirstName)

	stored, err := f.repo.GetUserByID(f.reader.ID)
	require.NoError(t, err)
	assert.Equal(t, "Augusta King", stored.FullName())
	assert.Equal(t, "augusta@example.com", stored.Email)
	assert.Equal(t, "science,poetry", stored.FavoriteGenres)

	err = f.accounts.UpdateProfile(ctx, f.reader, users.ProfileUpdate{FirstName: "A", Email: "admin@example.com"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, "This email is already registered.", apperr.Message(err, ""))

	err = f.accounts.UpdateProfile(ctx, f.reader, users.ProfileUpdate{Email: "augusta@example.com"})
	assert.Equal(t, "First name is required.", apperr.Message(err, ""))

	err = f.accounts.UpdateProfile(ctx, f.reader, users.ProfileUpdate{FirstName: "A", Email: "nope"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestAccounts_RequestRoleChange(t *testing.T) {
	f := setupAccounts(t)
	ctx := context.Background()

	_, err := f.accounts.RequestRoleChange(ctx, f.reader, entities.UserRoleReader, "why not")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.accounts.RequestRoleChange(ctx, f.reader, entities.UserRole("wizard"), "why not")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.accounts.RequestRoleChange(ctx, f.reader, entities.UserRoleAuthor, "  ")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	req, err := f.accounts.RequestRoleChange(ctx, f.reader, entities.UserRoleAuthor, "I wrote a novel")
	require.NoError(t, err)
	assert.Equal(t, entities.RoleChangePending, req.Status)

	_, err = f.accounts.RequestRoleChange(ctx, f.reader, entities.UserRoleAdmin, "again")
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	pending, err := f.accounts.PendingRoleChange(f.reader.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, entities.UserRoleAuthor, pending.RequestedRole)
}

func TestAccounts_DecideRoleChange(t *testing.T) {
	ctx := context.Background()

	t.Run("approve applies the role and notifies", func(t *testing.T) {
		f := setupAccounts(t)
		req, err := f.accounts.RequestRoleChange(ctx, f.reader, entities.UserRoleAuthor, "I wrote a novel")
		require.NoError(t, err)

		queue, err := f.accounts.PendingRoleChanges(ctx, f.admin)
		require.NoError(t, err)
		require.Len(t, queue, 1)
		assert.Equal(t, "ada", queue[0].User.Username)

		decided, err := f.accounts.DecideRoleChange(ctx, f.admin, req.ID, true, "")
		require.NoError(t, err)
		assert.Equal(t, entities.RoleChangeApproved, decided.Status)

		stored, err := f.repo.GetUserByID(f.reader.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.UserRoleAuthor, stored.Role)

		require.Len(t, f.notifier.sent, 1)
		n := f.notifier.sent[0]
		assert.Equal(t, entities.NotificationRoleChangeApproved, n.Type)
		assert.Equal(t, f.reader.ID, n.UserID)
		assert.Equal(t, "You are now registered as Author.", n.Message)

		_, err = f.accounts.DecideRoleChange(ctx, f.admin, req.ID, false, "")
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	})

	t.Run("reject keeps the role and allows a new request", func(t *testing.T) {
		f := setupAccounts(t)
		req, err := f.accounts.RequestRoleChange(ctx, f.reader, entities.UserRoleAuthor, "please")
		require.NoError(t, err)

		_, err = f.accounts.DecideRoleChange(ctx, f.admin, req.ID, false, "Show us a manuscript")
		require.NoError(t, err)

		stored, err := f.repo.GetUserByID(f.reader.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.UserRoleReader, stored.Role)

		require.Len(t, f.notifier.sent, 1)
		assert.Equal(t, entities.NotificationRoleChangeRejected, f.notifier.sent[0].Type)
		assert.Equal(t, "Your request to become Author was rejected. Comment: Show us a manuscript", f.notifier.sent[0].Message)

		again, err := f.accounts.RequestRoleChange(ctx, f.reader, entities.UserRoleAuthor, "here it is")
		require.NoError(t, err)
		assert.Equal(t, entities.RoleChangePending, again.Status)
	})

	t.Run("only admins decide", func(t *testing.T) {
		f := setupAccounts(t)
		req, err := f.accounts.RequestRoleChange(ctx, f.reader, entities.UserRoleAuthor, "please")
		require.NoError(t, err)

		_, err = f.accounts.DecideRoleChange(ctx, f.reader, req.ID, true, "")
		assert.True(t, errors.Is(err, apperr.ErrAuthorization))
		_, err = f.accounts.PendingRoleChanges(ctx, f.reader)
		assert.True(t, errors.Is(err, apperr.ErrAuthorization))

		_, err = f.accounts.DecideRoleChange(ctx, f.admin, 999, true, "")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}
