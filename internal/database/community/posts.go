package community

import (
	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/entities"
)

func (r *Repository) CreatePost(p *entities.CommunityPost) error {
	return r.db.Omit("Community", "Author", "Book", "Comments").Create(p).Error
}

// GetPost retrieves a post with its author, linked book and comments.
func (r *Repository) GetPost(id uint) (*entities.CommunityPost, error) {
	var p entities.CommunityPost
	err := r.db.Preload("Author").
		Preload("Book", func(db *gorm.DB) *gorm.DB { return db.Omit("file_blob") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Author").
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) UpdatePost(p *entities.CommunityPost) error {
	return r.db.Model(p).Select("title", "content", "book_id").Updates(p).Error
}

// DeletePost removes a post and its comments.
func (r *Repository) DeletePost(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&entities.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.CommunityPost{}, id).Error
	})
}

// ListPosts returns a community's posts, newest first.
func (r *Repository) ListPosts(communityID uint) ([]entities.CommunityPost, error) {
	var posts []entities.CommunityPost
	err := r.db.Preload("Author").
		Where("community_id = ?", communityID).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

// RecentPostsForUser returns the latest posts from communities the user has joined.
func (r *Repository) RecentPostsForUser(userID uint, limit int) ([]entities.CommunityPost, error) {
	var posts []entities.CommunityPost
	joined := r.db.Table(membersTable).Select("community_id").Where("user_id = ?", userID)
	err := r.db.Preload("Author").Preload("Community").
		Where("community_id IN (?)", joined).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *Repository) CreateComment(c *entities.Comment) error {
	return r.db.Omit("Post", "Author").Create(c).Error
}

func (r *Repository) GetComment(id uint) (*entities.Comment, error) {
	var c entities.Comment
	err := r.db.Preload("Author").First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) UpdateComment(c *entities.Comment) error {
	return r.db.Model(c).Update("content", c.Content).Error
}

func (r *Repository) DeleteComment(id uint) error {
	return r.db.Delete(&entities.Comment{}, id).Error
}

// CommentsByAuthor returns a user's comment history with the parent posts.
func (r *Repository) CommentsByAuthor(userID uint) ([]entities.Comment, error) {
	var comments []entities.Comment
	err := r.db.Preload("Post").Where("author_id = ?", userID).Order("created_at DESC").Find(&comments).Error
	return comments, err
}
