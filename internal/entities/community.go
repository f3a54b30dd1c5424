package entities

import "time"

type Community struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:255" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatorID   uint      `gorm:"index" json:"creator_id"`
	Creator     User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Members     []User    `gorm:"many2many:community_members;" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Community) TableName() string {
	return "communities"
}

type CommunityPost struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CommunityID uint      `gorm:"index" json:"community_id"`
	Community   Community `gorm:"foreignKey:CommunityID" json:"-"`
	AuthorID    uint      `gorm:"index" json:"author_id"`
	Author      User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title       string    `gorm:"size:255" json:"title"`
	Content     string    `gorm:"type:text" json:"content"`
	BookID      *uint     `json:"book_id,omitempty"`
	Book        *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Comments    []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (CommunityPost) TableName() string {
	return "community_posts"
}

type Comment struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	PostID    uint          `gorm:"index" json:"post_id"`
	Post      CommunityPost `gorm:"foreignKey:PostID" json:"-"`
	AuthorID  uint          `gorm:"index" json:"author_id"`
	Author    User          `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content   string        `gorm:"type:text" json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (Comment) TableName() string {
	return "comments"
}
