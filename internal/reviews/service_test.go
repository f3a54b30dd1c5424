package reviews

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/apperr"
	"github.com/mrlokans/bookshare/internal/entities"
)

type mockStore struct {
	reviews map[uint]*entities.Review
	nextID  uint
}

func newMockStore() *mockStore {
	return &mockStore{reviews: map[uint]*entities.Review{}}
}

func (m *mockStore) CreateReview(review *entities.Review) error {
	m.nextID++
	review.ID = m.nextID
	stored := *review
	m.reviews[review.ID] = &stored
	return nil
}

func (m *mockStore) GetReviewByID(id uint) (*entities.Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *r
	return &out, nil
}

func (m *mockStore) UpdateReview(review *entities.Review) error {
	stored := *review
	m.reviews[review.ID] = &stored
	return nil
}

func (m *mockStore) DeleteReview(id uint) error {
	delete(m.reviews, id)
	return nil
}

func (m *mockStore) FindByReviewer(bookID, reviewerID uint) (*entities.Review, error) {
	for _, r := range m.reviews {
		if r.BookID == bookID && r.ReviewerID == reviewerID {
			out := *r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListForBook(bookID uint) ([]entities.Review, error) {
	var out []entities.Review
	for _, r := range m.reviews {
		if r.BookID == bookID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockStore) AverageRating(bookID uint) (float64, int64, error) {
	var sum, count int64
	for _, r := range m.reviews {
		if r.BookID == bookID {
			sum += int64(r.Rating)
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

type recordingNotifier struct {
	sent []*entities.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n *entities.Notification) {
	r.sent = append(r.sent, n)
}

var (
	author = &entities.User{ID: 1, Username: "ursula", FirstName: "Ursula", Role: entities.UserRoleAuthor}
	reader = &entities.User{ID: 2, Username: "ada", FirstName: "Ada", LastName: "Lovelace", Role: entities.UserRoleReader}
	other  = &entities.User{ID: 3, Username: "bob", Role: entities.UserRoleReader}
	book   = &entities.Book{ID: 10, Title: "The Dispossessed", AuthorID: 1, Status: entities.BookStatusApproved}
)

func TestService_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the review and notifies the author", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := NewService(newMockStore(), notifier)

		review, err := svc.Add(ctx, reader, book, Input{Rating: 5, Title: " Anarres ", Content: " A classic. "})
		require.NoError(t, err)
		assert.Equal(t, "Anarres", review.Title)
		assert.Equal(t, "A classic.", review.Content)

		require.Len(t, notifier.sent, 1)
		n := notifier.sent[0]
		assert.Equal(t, entities.NotificationReviewAdded, n.Type)
		assert.Equal(t, author.ID, n.UserID)
		assert.Equal(t, `Ada Lovelace rated "The Dispossessed" 5/5.`, n.Message)
	})

	t.Run("one review per book", func(t *testing.T) {
		svc := NewService(newMockStore(), nil)
		_, err := svc.Add(ctx, reader, book, Input{Rating: 4, Content: "good"})
		require.NoError(t, err)

		_, err = svc.Add(ctx, reader, book, Input{Rating: 2, Content: "changed my mind"})
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	})

	t.Run("validates rating and content", func(t *testing.T) {
		svc := NewService(newMockStore(), nil)
		for _, in := range []Input{
			{Rating: 0, Content: "x"},
			{Rating: 6, Content: "x"},
			{Rating: 3, Content: "   "},
		} {
			_, err := svc.Add(ctx, reader, book, in)
			assert.True(t, errors.Is(err, apperr.ErrValidation), "input %+v", in)
		}
	})

	t.Run("unpublished books cannot be reviewed", func(t *testing.T) {
		svc := NewService(newMockStore(), nil)
		draft := &entities.Book{ID: 11, AuthorID: 1, Status: entities.BookStatusPending}
		_, err := svc.Add(ctx, reader, draft, Input{Rating: 3, Content: "x"})
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("authors reviewing their own book are not notified", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := NewService(newMockStore(), notifier)
		_, err := svc.Add(ctx, author, book, Input{Rating: 5, Content: "mine"})
		require.NoError(t, err)
		assert.Empty(t, notifier.sent)
	})
}

func TestService_EditAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := NewService(store, nil)

	review, err := svc.Add(ctx, reader, book, Input{Rating: 3, Content: "ok"})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, other, review.ID, Input{Rating: 1, Content: "bad"})
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	edited, err := svc.Edit(ctx, reader, review.ID, Input{Rating: 4, Content: "better on reread"})
	require.NoError(t, err)
	assert.Equal(t, 4, edited.Rating)

	summary, err := svc.ForBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Count)
	assert.InDelta(t, 4.0, summary.Average, 0.001)

	_, err = svc.Delete(ctx, other, review.ID)
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	_, err = svc.Delete(ctx, reader, review.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, review.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
