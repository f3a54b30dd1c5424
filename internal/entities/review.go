package entities

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookID     uint      `gorm:"uniqueIndex:idx_review_book_reviewer" json:"book_id"`
	Book       Book      `gorm:"foreignKey:BookID" json:"-"`
	ReviewerID uint      `gorm:"uniqueIndex:idx_review_book_reviewer;index" json:"reviewer_id"`
	Reviewer   User      `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Rating     int       `json:"rating"`
	Title      string    `gorm:"size:255" json:"title,omitempty"`
	Content    string    `gorm:"type:text" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}
