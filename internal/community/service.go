// Package community runs reader communities: membership, posts and comments.
package community

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/apperr"
	communitydb "github.com/mrlokans/bookshare/internal/database/community"
	"github.com/mrlokans/bookshare/internal/entities"
)

const recentPostsLimit = 10

type Store interface {
	CreateCommunity(c *entities.Community) error
	GetCommunity(id uint) (*entities.Community, error)
	NameTaken(name string) (bool, error)
	ListCommunities(userID uint) ([]communitydb.Summary, error)
	IsMember(communityID, userID uint) (bool, error)
	Join(communityID, userID uint) error
	Leave(communityID, userID uint) error
	Members(communityID uint) ([]entities.User, error)

	CreatePost(p *entities.CommunityPost) error
	GetPost(id uint) (*entities.CommunityPost, error)
	UpdatePost(p *entities.CommunityPost) error
	DeletePost(id uint) error
	ListPosts(communityID uint) ([]entities.CommunityPost, error)
	RecentPostsForUser(userID uint, limit int) ([]entities.CommunityPost, error)

	CreateComment(c *entities.Comment) error
	GetComment(id uint) (*entities.Comment, error)
	UpdateComment(c *entities.Comment) error
	DeleteComment(id uint) error
	CommentsByAuthor(userID uint) ([]entities.Comment, error)
}

// Hub is the community landing page for a user.
type Hub struct {
	Communities []communitydb.Summary    `json:"communities"`
	RecentPosts []entities.CommunityPost `json:"recent_posts"`
}

// Detail is a single community with its posts and members.
type Detail struct {
	Community *entities.Community      `json:"community"`
	Posts     []entities.CommunityPost `json:"posts"`
	Members   []entities.User          `json:"members"`
	IsMember  bool                     `json:"is_member"`
}

// PostInput holds the editable post fields. BookID optionally links a catalog book.
type PostInput struct {
	Title   string
	Content string
	BookID  *uint
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Hub(ctx context.Context, user *entities.User) (*Hub, error) {
	var userID uint
	if user != nil {
		userID = user.ID
	}
	items, err := s.store.ListCommunities(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	hub := &Hub{Communities: items}
	if userID != 0 {
		hub.RecentPosts, err = s.store.RecentPostsForUser(userID, recentPostsLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent posts: %w", err)
		}
	}
	return hub, nil
}

// Create starts a community; its creator becomes the first member.
func (s *Service) Create(ctx context.Context, creator *entities.User, name, description string) (*entities.Community, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, apperr.Validation("Community name is required.")
	}
	if len(name) > 255 {
		return nil, apperr.Validation("Community name must be at most 255 characters.")
	}
	if description == "" {
		return nil, apperr.Validation("Description is required.")
	}
	taken, err := s.store.NameTaken(name)
	if err != nil {
		return nil, fmt.Errorf("failed to check community name: %w", err)
	}
	if taken {
		return nil, apperr.Validation("A community with this name already exists.")
	}

	c := &entities.Community{Name: name, Description: description, CreatorID: creator.ID}
	if err := s.store.CreateCommunity(c); err != nil {
		return nil, fmt.Errorf("failed to create community: %w", err)
	}
	c.Creator = *creator
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*entities.Community, error) {
	c, err := s.store.GetCommunity(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Community not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load community %d: %w", id, err)
	}
	return c, nil
}

func (s *Service) Detail(ctx context.Context, user *entities.User, id uint) (*Detail, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Detail{Community: c}
	if d.Posts, err = s.store.ListPosts(id); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if d.Members, err = s.store.Members(id); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if user != nil {
		if d.IsMember, err = s.store.IsMember(id, user.ID); err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
	}
	return d, nil
}

func (s *Service) Join(ctx context.Context, user *entities.User, id uint) (*entities.Community, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Join(id, user.ID); err != nil {
		return nil, fmt.Errorf("failed to join community: %w", err)
	}
	return c, nil
}

func (s *Service) Leave(ctx context.Context, user *entities.User, id uint) (*entities.Community, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Leave(id, user.ID); err != nil {
		return nil, fmt.Errorf("failed to leave community: %w", err)
	}
	return c, nil
}

// CreatePost publishes a post. Only members may post.
func (s *Service) CreatePost(ctx context.Context, author *entities.User, communityID uint, in PostInput) (*entities.CommunityPost, error) {
	if _, err := s.Get(ctx, communityID); err != nil {
		return nil, err
	}
	member, err := s.store.IsMember(communityID, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, apperr.Authorization("You must be a member of this community to post.")
	}
	if err := validatePost(&in); err != nil {
		return nil, err
	}

	post := &entities.CommunityPost{
		CommunityID: communityID,
		AuthorID:    author.ID,
		Title:       in.Title,
		Content:     in.Content,
		BookID:      in.BookID,
	}
	if err := s.store.CreatePost(post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

func (s *Service) GetPost(ctx context.Context, id uint) (*entities.CommunityPost, error) {
	post, err := s.store.GetPost(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Post not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", id, err)
	}
	return post, nil
}

// EditPost updates a post. Its author or an admin may edit it.
func (s *Service) EditPost(ctx context.Context, actor *entities.User, id uint, in PostInput) (*entities.CommunityPost, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, apperr.Authorization("You cannot edit this post.")
	}
	if err := validatePost(&in); err != nil {
		return nil, err
	}
	post.Title = in.Title
	post.Content = in.Content
	post.BookID = in.BookID
	if err := s.store.UpdatePost(post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return post, nil
}

// DeletePost removes a post and its comments. Its author or an admin may delete it.
func (s *Service) DeletePost(ctx context.Context, actor *entities.User, id uint) (*entities.CommunityPost, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, apperr.Authorization("You cannot delete this post.")
	}
	if err := s.store.DeletePost(id); err != nil {
		return nil, fmt.Errorf("failed to delete post: %w", err)
	}
	return post, nil
}

// AddComment adds a comment to a post. Any signed-in user may comment.
func (s *Service) AddComment(ctx context.Context, author *entities.User, postID uint, content string) (*entities.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Comment cannot be empty.")
	}
	comment := &entities.Comment{PostID: postID, AuthorID: author.ID, Content: content}
	if err := s.store.CreateComment(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	comment.Author = *author
	return comment, nil
}

func (s *Service) GetComment(ctx context.Context, id uint) (*entities.Comment, error) {
	comment, err := s.store.GetComment(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Comment not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load comment %d: %w", id, err)
	}
	return comment, nil
}

func (s *Service) EditComment(ctx context.Context, actor *entities.User, id uint, content string) (*entities.Comment, error) {
	comment, err := s.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, apperr.Authorization("You cannot edit this comment.")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Comment cannot be empty.")
	}
	comment.Content = content
	if err := s.store.UpdateComment(comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return comment, nil
}

func (s *Service) DeleteComment(ctx context.Context, actor *entities.User, id uint) (*entities.Comment, error) {
	comment, err := s.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, apperr.Authorization("You cannot delete this comment.")
	}
	if err := s.store.DeleteComment(id); err != nil {
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}
	return comment, nil
}

// CommentHistory lists the user's own comments, newest first.
func (s *Service) CommentHistory(ctx context.Context, user *entities.User) ([]entities.Comment, error) {
	comments, err := s.store.CommentsByAuthor(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func validatePost(in *PostInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Title == "" {
		return apperr.Validation("Post title is required.")
	}
	if len(in.Title) > 255 {
		return apperr.Validation("Post title must be at most 255 characters.")
	}
	if in.Content == "" {
		return apperr.Validation("Post content is required.")
	}
	if in.BookID != nil && *in.BookID == 0 {
		in.BookID = nil
	}
	return nil
}
