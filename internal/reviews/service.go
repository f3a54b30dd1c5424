// Package reviews lets readers rate and review published books.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/notify"
)

// Store is the persistence the service needs.
type Store interface {
	CreateReview(review *entities.Review) error
	GetReviewByID(id uint) (*entities.Review, error)
	UpdateReview(review *entities.Review) error
	DeleteReview(id uint) error
	FindByReviewer(bookID, reviewerID uint) (*entities.Review, error)
	ListForBook(bookID uint) ([]entities.Review, error)
	AverageRating(bookID uint) (float64, int64, error)
}

// Input holds the editable review fields.
type Input struct {
	Rating  int
	Title   string
	Content string
}

// Summary is a book's reviews with their average rating.
type Summary struct {
	Reviews []entities.Review `json:"reviews"`
	Average float64           `json:"average"`
	Count   int64             `json:"count"`
}

type Service struct {
	store    Store
	notifier notify.Notifier
}

func NewService(store Store, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{store: store, notifier: notifier}
}

// Get loads a review with its reviewer.
func (s *Service) Get(ctx context.Context, id uint) (*entities.Review, error) {
	review, err := s.store.GetReviewByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Review not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load review %d: %w", id, err)
	}
	return review, nil
}

// Existing returns the user's review of the book, or nil.
func (s *Service) Existing(ctx context.Context, user *entities.User, bookID uint) (*entities.Review, error) {
	if user == nil {
		return nil, nil
	}
	return s.store.FindByReviewer(bookID, user.ID)
}

// ForBook returns a book's reviews and rating.
func (s *Service) ForBook(ctx context.Context, bookID uint) (*Summary, error) {
	items, err := s.store.ListForBook(bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	avg, count, err := s.store.AverageRating(bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rating: %w", err)
	}
	return &Summary{Reviews: items, Average: avg, Count: count}, nil
}

// Add posts reviewer's review of book and tells the book's author.
// A reader reviews each book once.
func (s *Service) Add(ctx context.Context, reviewer *entities.User, book *entities.Book, in Input) (*entities.Review, error) {
	if !book.IsPublished() {
		return nil, apperr.NotFound("Book not found.")
	}
	existing, err := s.store.FindByReviewer(book.ID, reviewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if existing != nil {
		return nil, apperr.InvalidState("You have already reviewed this book.")
	}
	if err := validate(&in); err != nil {
		return nil, err
	}

	review := &entities.Review{
		BookID:     book.ID,
		ReviewerID: reviewer.ID,
		Rating:     in.Rating,
		Title:      in.Title,
		Content:    in.Content,
	}
	if err := s.store.CreateReview(review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	review.Reviewer = *reviewer

	if book.AuthorID != reviewer.ID {
		bookID, reviewerID := book.ID, reviewer.ID
		s.notifier.Notify(ctx, &entities.Notification{
			UserID:        book.AuthorID,
			Type:          entities.NotificationReviewAdded,
			Title:         fmt.Sprintf("New review for %q", book.Title),
			Message:       fmt.Sprintf("%s rated %q %d/5.", reviewer.FullName(), book.Title, review.Rating),
			RelatedBookID: &bookID,
			RelatedUserID: &reviewerID,
		})
	}
	return review, nil
}

// Edit changes a review. Only its reviewer may edit it.
func (s *Service) Edit(ctx context.Context, actor *entities.User, reviewID uint, in Input) (*entities.Review, error) {
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.ReviewerID != actor.ID {
		return nil, apperr.Authorization("You cannot edit this review.")
	}
	if err := validate(&in); err != nil {
		return nil, err
	}

	review.Rating = in.Rating
	review.Title = in.Title
	review.Content = in.Content
	if err := s.store.UpdateReview(review); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	return review, nil
}

// Delete removes a review. Only its reviewer may delete it.
func (s *Service) Delete(ctx context.Context, actor *entities.User, reviewID uint) (*entities.Review, error) {
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.ReviewerID != actor.ID {
		return nil, apperr.Authorization("You cannot delete this review.")
	}
	if err := s.store.DeleteReview(review.ID); err != nil {
		return nil, fmt.Errorf("failed to delete review: %w", err)
	}
	return review, nil
}

func validate(in *Input) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Rating < entities.MinRating || in.Rating > entities.MaxRating {
		return apperr.Validation("Rating must be between %d and %d.", entities.MinRating, entities.MaxRating)
	}
	if in.Content == "" {
		return apperr.Validation("Review content is required.")
	}
	if len(in.Title) > 255 {
		return apperr.Validation("Title must be at most 255 characters.")
	}
	return nil
}
