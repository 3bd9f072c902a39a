package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Emitter dispatches lifecycle signals. *hooks.Dispatcher satisfies it.
type Emitter interface {
	Do(ctx context.Context, name string, payload any) error
}

// Service is the object API over subscriptions and renewal orders.
// Mutating methods persist the change and then emit the matching signal.
type Service interface {
	Subscription(ctx context.Context, id int64) (*Subscription, error)
	ListSubscriptions(ctx context.Context, f Filter) ([]*Subscription, error)
	CountSubscriptions(ctx context.Context, f Filter) (int, error)
	Save(ctx context.Context, sub *Subscription) error
	UpdateStatus(ctx context.Context, sub *Subscription, to Status, note string) error
	UpdateNextPayment(ctx context.Context, sub *Subscription, next time.Time) error

	Order(ctx context.Context, id int64) (*Order, error)
	RenewalOrders(ctx context.Context, subscriptionID int64) ([]*Order, error)
	SubscriptionsForOrder(ctx context.Context, orderID int64) ([]*Subscription, error)
	SaveOrder(ctx context.Context, order *Order) error
	UpdateOrderStatus(ctx context.Context, order *Order, to OrderStatus, note string) error
	CreateRenewalOrder(ctx context.Context, sub *Subscription) (*Order, error)
	GenerateManualRenewalOrder(ctx context.Context, subscriptionID int64) (*Order, error)
	CompleteRenewalPayment(ctx context.Context, orderID int64, paidAt time.Time) error

	AddNote(ctx context.Context, target NoteTarget, id int64, body string) error
	Notes(ctx context.Context, target NoteTarget, id int64) ([]Note, error)
}

type service struct {
	store   Store
	emitter Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a Service over store.
// Panics if store is nil to fail fast during initialization.
func NewService(store Store, opts ...ServiceOption) Service {
	if store == nil {
		panic("subscription: Store is required")
	}

	s := &service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Subscription(ctx context.Context, id int64) (*Subscription, error) {
	return s.store.GetSubscription(ctx, id)
}

func (s *service) ListSubscriptions(ctx context.Context, f Filter) ([]*Subscription, error) {
	return s.store.ListSubscriptions(ctx, f)
}

func (s *service) CountSubscriptions(ctx context.Context, f Filter) (int, error) {
	return s.store.CountSubscriptions(ctx, f)
}

func (s *service) Save(ctx context.Context, sub *Subscription) error {
	sub.UpdatedAt = s.now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = sub.UpdatedAt
	}
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return errors.Join(ErrFailedToSave, err)
	}
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, sub *Subscription, to Status, note string) error {
	from := sub.Status
	if from == to {
		return nil
	}
	if err := checkTransition(from, to); err != nil {
		return err
	}

	sub.Status = to
	if err := s.Save(ctx, sub); err != nil {
		sub.Status = from
		return err
	}

	body := fmt.Sprintf("Status changed from %s to %s.", from, to)
	if note != "" {
		body = note + " " + body
	}
	if err := s.AddNote(ctx, NoteOnSubscription, sub.ID, body); err != nil {
		return err
	}

	s.emit(ctx, SignalStatusChanged, StatusChange{Subscription: sub, From: from, To: to})
	return nil
}

func (s *service) UpdateNextPayment(ctx context.Context, sub *Subscription, next time.Time) error {
	prev := sub.NextPayment
	if prev.Equal(next) {
		return nil
	}

	sub.NextPayment = next.UTC()
	if err := s.Save(ctx, sub); err != nil {
		sub.NextPayment = prev
		return err
	}

	s.emit(ctx, SignalDatesChanged, DatesChange{
		Subscription: sub,
		Date:         DateNextPayment,
		Previous:     prev,
		Current:      sub.NextPayment,
	})
	return nil
}

func (s *service) Order(ctx context.Context, id int64) (*Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *service) RenewalOrders(ctx context.Context, subscriptionID int64) ([]*Order, error) {
	orders, err := s.store.ListOrders(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	renewals := orders[:0]
	for _, o := range orders {
		if o.Relation == RelationRenewal {
			renewals = append(renewals, o)
		}
	}
	return renewals, nil
}

func (s *service) SubscriptionsForOrder(ctx context.Context, orderID int64) ([]*Subscription, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SubscriptionID == 0 {
		return nil, nil
	}

	sub, err := s.store.GetSubscription(ctx, order.SubscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []*Subscription{sub}, nil
}

func (s *service) SaveOrder(ctx context.Context, order *Order) error {
	order.UpdatedAt = s.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = order.UpdatedAt
	}
	if err := s.store.SaveOrder(ctx, order); err != nil {
		return errors.Join(ErrFailedToSave, err)
	}
	return nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, order *Order, to OrderStatus, note string) error {
	from := order.Status
	order.Status = to
	if err := s.SaveOrder(ctx, order); err != nil {
		order.Status = from
		return err
	}

	if note != "" {
		if err := s.AddNote(ctx, NoteOnOrder, order.ID, note); err != nil {
			return err
		}
	}

	if from != to {
		s.emit(ctx, SignalOrderStatusChanged, OrderStatusChange{Order: order, From: from, To: to})
	}
	return nil
}

func (s *service) CreateRenewalOrder(ctx context.Context, sub *Subscription) (*Order, error) {
	order := &Order{
		SubscriptionID: sub.ID,
		Relation:       RelationRenewal,
		Status:         OrderPending,
		Key:            newOrderKey(),
		Billing:        sub.Billing,
	}
	if err := s.SaveOrder(ctx, order); err != nil {
		return nil, errors.Join(ErrFailedToCreateOrder, err)
	}

	if err := s.AddNote(ctx, NoteOnSubscription, sub.ID,
		fmt.Sprintf("Renewal order #%d created.", order.ID)); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GenerateManualRenewalOrder(ctx context.Context, subscriptionID int64) (*Order, error) {
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	order, err := s.CreateRenewalOrder(ctx, sub)
	if err != nil {
		return nil, err
	}
	// orders generated from the admin start on hold
	if err := s.UpdateOrderStatus(ctx, order, OrderOnHold, ""); err != nil {
		return nil, err
	}

	s.emit(ctx, SignalManualRenewalOrder, OrderRef{OrderID: order.ID, SubscriptionID: sub.ID})

	return s.store.GetOrder(ctx, order.ID)
}

// CompleteRenewalPayment records payment of a renewal order: the subscription is
// reactivated with next payment one interval after paidAt, then the order status
// change and payment completion signals are emitted.
func (s *service) CompleteRenewalPayment(ctx context.Context, orderID int64, paidAt time.Time) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Relation != RelationRenewal {
		return ErrNotRenewalOrder
	}

	sub, err := s.store.GetSubscription(ctx, order.SubscriptionID)
	if err != nil {
		return err
	}

	from := order.Status
	order.Status = OrderCompleted
	if err := s.SaveOrder(ctx, order); err != nil {
		return err
	}
	if err := s.AddNote(ctx, NoteOnOrder, order.ID, "Payment received."); err != nil {
		return err
	}

	next, err := AddInterval(paidAt, sub.BillingInterval, sub.BillingPeriod)
	if err != nil {
		return err
	}
	if err := s.UpdateNextPayment(ctx, sub, next); err != nil {
		return err
	}
	if sub.Status != StatusActive {
		if err := s.UpdateStatus(ctx, sub, StatusActive, "Renewal payment received."); err != nil {
			return err
		}
	}

	if from != OrderCompleted {
		s.emit(ctx, SignalOrderStatusChanged, OrderStatusChange{Order: order, From: from, To: OrderCompleted})
	}

	// handlers above may have rewritten the subscription
	fresh, err := s.store.GetSubscription(ctx, sub.ID)
	if err != nil {
		return err
	}
	s.emit(ctx, SignalRenewalPaymentComplete, PaymentComplete{Subscription: fresh, Order: order})

	return nil
}

func (s *service) AddNote(ctx context.Context, target NoteTarget, id int64, body string) error {
	return s.store.AddNote(ctx, Note{
		Target:    target,
		TargetID:  id,
		Body:      body,
		CreatedAt: s.now().UTC(),
	})
}

func (s *service) Notes(ctx context.Context, target NoteTarget, id int64) ([]Note, error) {
	return s.store.ListNotes(ctx, target, id)
}

// emit logs handler failures; the change is already persisted.
func (s *service) emit(ctx context.Context, signal string, payload any) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Do(ctx, signal, payload); err != nil {
		s.logger.WarnContext(ctx, "signal handlers reported errors",
			slog.String("signal", signal),
			slog.String("error", err.Error()))
	}
}

func newOrderKey() string {
	return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
}
