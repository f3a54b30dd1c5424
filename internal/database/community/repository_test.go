package community

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshare/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
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
	return NewRepository(db), db
}

func createUser(t *testing.T, db *gorm.DB, name string) *entities.User {
	t.Helper()
	u := &entities.User{Username: name, Email: name + "@example.com", Role: entities.UserRoleReader, IsApproved: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestRepository_Membership(t *testing.T) {
	repo, db := setupTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	c := &entities.Community{Name: "Sci-Fi Club", Description: "spaceships", CreatorID: alice.ID}
	require.NoError(t, repo.CreateCommunity(c))

	member, err := repo.IsMember(c.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, member, "creator is auto-joined")

	taken, err := repo.NameTaken("sci-fi club")
	require.NoError(t, err)
	assert.True(t, taken)

	require.NoError(t, repo.Join(c.ID, bob.ID))
	require.NoError(t, repo.Join(c.ID, bob.ID))

	members, err := repo.Members(c.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	list, err := repo.ListCommunities(bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].MemberCount)
	assert.True(t, list[0].IsMember)

	require.NoError(t, repo.Leave(c.ID, bob.ID))
	member, err = repo.IsMember(c.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, member)

	list, err = repo.ListCommunities(bob.ID)
	require.NoError(t, err)
	assert.False(t, list[0].IsMember)
}

func TestRepository_PostsAndComments(t *testing.T) {
	repo, db := setupTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	c := &entities.Community{Name: "Readers", CreatorID: alice.ID}
	require.NoError(t, repo.CreateCommunity(c))
	other := &entities.Community{Name: "Poets", CreatorID: bob.ID}
	require.NoError(t, repo.CreateCommunity(other))

	post := &entities.CommunityPost{CommunityID: c.ID, AuthorID: alice.ID, Title: "Hello", Content: "First post"}
	require.NoError(t, repo.CreatePost(post))
	require.NoError(t, repo.CreatePost(&entities.CommunityPost{CommunityID: other.ID, AuthorID: bob.ID, Title: "Verse", Content: "..."}))

	comment := &entities.Comment{PostID: post.ID, AuthorID: bob.ID, Content: "Welcome"}
	require.NoError(t, repo.CreateComment(comment))

	got, err := repo.GetPost(post.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Author.Username)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "bob", got.Comments[0].Author.Username)

	recent, err := repo.RecentPostsForUser(alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Readers", recent[0].Community.Name)

	history, err := repo.CommentsByAuthor(bob.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Hello", history[0].Post.Title)

	comment.Content = "Welcome aboard"
	require.NoError(t, repo.UpdateComment(comment))
	reloaded, err := repo.GetComment(comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome aboard", reloaded.Content)

	got.Title = "Hello again"
	require.NoError(t, repo.UpdatePost(got))

	require.NoError(t, repo.DeletePost(post.ID))
	_, err = repo.GetComment(comment.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	posts, err := repo.ListPosts(c.ID)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
