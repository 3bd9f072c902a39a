package subscription

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	subs    map[int64]*Subscription
	orders  map[int64]*Order
	notes   []Note
	lastSub int64
	lastOrd int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:   make(map[int64]*Subscription),
		orders: make(map[int64]*Order),
	}
}

// GetSubscription returns a copy of the stored subscription.
func (m *MemoryStore) GetSubscription(_ context.Context, id int64) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return sub.Clone(), nil
}

// SaveSubscription stores a copy of sub, assigning the next id to new ones.
func (m *MemoryStore) SaveSubscription(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.ID == 0 {
		m.lastSub++
		sub.ID = m.lastSub
	}
	m.lastSub = max(m.lastSub, sub.ID)
	m.subs[sub.ID] = sub.Clone()
	return nil
}

// ListSubscriptions returns copies ordered by id.
func (m *MemoryStore) ListSubscriptions(_ context.Context, f Filter) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		if matches(sub, f) {
			out = append(out, sub.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Subscription) int { return cmp.Compare(a.ID, b.ID) })

	if f.Offset > 0 {
		out = out[min(f.Offset, len(out)):]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) CountSubscriptions(ctx context.Context, f Filter) (int, error) {
	f.Limit, f.Offset = 0, 0
	subs, err := m.ListSubscriptions(ctx, f)
	return len(subs), err
}

func (m *MemoryStore) GetOrder(_ context.Context, id int64) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (m *MemoryStore) SaveOrder(_ context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.ID == 0 {
		m.lastOrd++
		order.ID = m.lastOrd
	}
	m.lastOrd = max(m.lastOrd, order.ID)
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *MemoryStore) ListOrders(_ context.Context, subscriptionID int64) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Order
	for _, o := range m.orders {
		if o.SubscriptionID == subscriptionID {
			out = append(out, o.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Order) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (m *MemoryStore) AddNote(_ context.Context, note Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, note)
	return nil
}

func (m *MemoryStore) ListNotes(_ context.Context, target NoteTarget, id int64) ([]Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Note
	for _, n := range m.notes {
		if n.Target == target && n.TargetID == id {
			out = append(out, n)
		}
	}
	return out, nil
}

func matches(sub *Subscription, f Filter) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, sub.Status) {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, sub.ID) {
		return false
	}
	if f.ManualOnly && !sub.RequiresManualRenewal {
		return false
	}
	if f.HasMeta != "" {
		if _, ok := sub.Meta[f.HasMeta]; !ok {
			return false
		}
	}
	if f.LacksMeta != "" {
		if _, ok := sub.Meta[f.LacksMeta]; ok {
			return false
		}
	}
	return true
}
