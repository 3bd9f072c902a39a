package subscription

import "context"

// Store persists subscriptions, orders and notes.
// Implementations return copies; callers mutate and Save explicitly.
type Store interface {
	// GetSubscription returns ErrSubscriptionNotFound when id is unknown.
	GetSubscription(ctx context.Context, id int64) (*Subscription, error)

	// SaveSubscription inserts when ID is zero (assigning it) and updates otherwise.
	SaveSubscription(ctx context.Context, sub *Subscription) error

	ListSubscriptions(ctx context.Context, f Filter) ([]*Subscription, error)
	CountSubscriptions(ctx context.Context, f Filter) (int, error)

	// GetOrder returns ErrOrderNotFound when id is unknown.
	GetOrder(ctx context.Context, id int64) (*Order, error)

	// SaveOrder inserts when ID is zero (assigning it) and updates otherwise.
	SaveOrder(ctx context.Context, order *Order) error

	// ListOrders returns the orders linked to a subscription, newest first.
	ListOrders(ctx context.Context, subscriptionID int64) ([]*Order, error)

	AddNote(ctx context.Context, note Note) error
	ListNotes(ctx context.Context, target NoteTarget, id int64) ([]Note, error)
}
