// Package notify delivers in-app notifications.
//
// Delivery is fire-and-forget: a failure to store a notification is logged
// and never surfaces to the operation that triggered it.
package notify

import (
	"context"
	"log"

	"github.com/mrlokans/bookshare/internal/entities"
)

// Notifier delivers a notification to its recipient.
type Notifier interface {
	Notify(ctx context.Context, n *entities.Notification)
}

// Store persists notifications.
type Store interface {
	CreateNotification(n *entities.Notification) error
}

// StoreNotifier writes notifications straight to the store.
type StoreNotifier struct {
	store Store
}

func NewStoreNotifier(store Store) *StoreNotifier {
	return &StoreNotifier{store: store}
}

func (s *StoreNotifier) Notify(_ context.Context, n *entities.Notification) {
	Deliver(s.store, n)
}

// Deliver inserts the notification and logs a failure.
func Deliver(store Store, n *entities.Notification) {
	if n == nil || n.UserID == 0 {
		return
	}
	if err := store.CreateNotification(n); err != nil {
		log.Printf("[NOTIFY] Failed to deliver %s notification to user %d: %v", n.Type, n.UserID, err)
	}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, *entities.Notification) {}
