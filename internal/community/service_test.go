package community

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshare/internal/apperr"
	communitydb "github.com/mrlokans/bookshare/internal/database/community"
	"github.com/mrlokans/bookshare/internal/entities"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "community.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.Community{}, &entities.CommunityPost{}, &entities.Comment{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewService(communitydb.NewRepository(db)), db
}

func createUser(t *testing.T, db *gorm.DB, name string, role entities.UserRole) *entities.User {
	t.Helper()
	u := &entities.User{Username: name, Email: name + "@example.com", Role: role, IsApproved: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, db := setupService(t)
	alice := createUser(t, db, "alice", entities.UserRoleReader)

	c, err := svc.Create(ctx, alice, "  Sci-Fi Club ", "Spaceships and such")
	require.NoError(t, err)
	assert.Equal(t, "Sci-Fi Club", c.Name)

	detail, err := svc.Detail(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsMember)
	assert.Len(t, detail.Members, 1)

	_, err = svc.Create(ctx, alice, "sci-fi club", "duplicate")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Create(ctx, alice, "", "no name")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Create(ctx, alice, "Poetry", " ")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Detail(ctx, alice, 999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestService_PostingRequiresMembership(t *testing.T) {
	ctx := context.Background()
	svc, db := setupService(t)
	alice := createUser(t, db, "alice", entities.UserRoleReader)
	bob := createUser(t, db, "bob", entities.UserRoleReader)

	c, err := svc.Create(ctx, alice, "Readers", "All books")
	require.NoError(t, err)

	_, err = svc.CreatePost(ctx, bob, c.ID, PostInput{Title: "Hi", Content: "Hello"})
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	_, err = svc.Join(ctx, bob, c.ID)
	require.NoError(t, err)

	post, err := svc.CreatePost(ctx, bob, c.ID, PostInput{Title: " Hi ", Content: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi", post.Title)

	hub, err := svc.Hub(ctx, alice)
	require.NoError(t, err)
	require.Len(t, hub.Communities, 1)
	assert.Equal(t, int64(2), hub.Communities[0].MemberCount)
	require.Len(t, hub.RecentPosts, 1)
	assert.Equal(t, post.ID, hub.RecentPosts[0].ID)

	_, err = svc.Leave(ctx, bob, c.ID)
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, bob, c.ID, PostInput{Title: "Again", Content: "?"})
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	_, err = svc.CreatePost(ctx, alice, c.ID, PostInput{Title: "", Content: "x"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestService_PostAndCommentOwnership(t *testing.T) {
	ctx := context.Background()
	svc, db := setupService(t)
	alice := createUser(t, db, "alice", entities.UserRoleReader)
	bob := createUser(t, db, "bob", entities.UserRoleReader)
	admin := createUser(t, db, "root", entities.UserRoleAdmin)

	c, err := svc.Create(ctx, alice, "Readers", "All books")
	require.NoError(t, err)
	post, err := svc.CreatePost(ctx, alice, c.ID, PostInput{Title: "Favourites", Content: "Go"})
	require.NoError(t, err)

	// Non-members may still comment
	comment, err := svc.AddComment(ctx, bob, post.ID, " The Left Hand of Darkness ")
	require.NoError(t, err)
	assert.Equal(t, "The Left Hand of Darkness", comment.Content)

	_, err = svc.AddComment(ctx, bob, post.ID, "  ")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.EditPost(ctx, bob, post.ID, PostInput{Title: "Mine now", Content: "x"})
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	_, err = svc.EditComment(ctx, alice, comment.ID, "edited by someone else")
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	edited, err := svc.EditComment(ctx, bob, comment.ID, "The Dispossessed")
	require.NoError(t, err)
	assert.Equal(t, "The Dispossessed", edited.Content)

	history, err := svc.CommentHistory(ctx, bob)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, post.ID, history[0].PostID)

	loaded, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Comments, 1)
	assert.Equal(t, "bob", loaded.Comments[0].Author.Username)

	// Admins may moderate anything
	_, err = svc.EditPost(ctx, admin, post.ID, PostInput{Title: "Favourites (edited)", Content: "Go"})
	require.NoError(t, err)

	_, err = svc.DeletePost(ctx, bob, post.ID)
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	_, err = svc.DeletePost(ctx, admin, post.ID)
	require.NoError(t, err)

	_, err = svc.GetPost(ctx, post.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = svc.GetComment(ctx, comment.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
