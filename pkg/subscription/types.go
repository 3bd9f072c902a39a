package subscription

import (
	"maps"
	"time"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusPending       Status = "pending"
	StatusActive        Status = "active"
	StatusOnHold        Status = "on-hold"
	StatusPendingCancel Status = "pending-cancel"
	StatusCancelled     Status = "cancelled"
	StatusExpired       Status = "expired"
)

// Period is the unit of a billing interval.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Valid reports whether p is a known billing period.
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
	OrderOnHold     OrderStatus = "on-hold"
	OrderCancelled  OrderStatus = "cancelled"
)

// Paid reports whether the status means payment has been received.
func (s OrderStatus) Paid() bool {
	return s == OrderProcessing || s == OrderCompleted
}

// Relation describes how an order is linked to its subscription.
type Relation string

const (
	RelationParent  Relation = "parent"
	RelationRenewal Relation = "renewal"
)

// Contact holds billing contact details.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// FullName joins first and last name.
func (c Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Meta is a string keyed metadata bag attached to subscriptions and orders.
type Meta map[string]string

// Get returns the value for key and whether it is set.
func (m Meta) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Subscription is a recurring billing agreement.
type Subscription struct {
	ID                    int64     `json:"id"`
	CustomerID            int64     `json:"customer_id"`
	Status                Status    `json:"status"`
	BillingInterval       int       `json:"billing_interval"`
	BillingPeriod         Period    `json:"billing_period"`
	RequiresManualRenewal bool      `json:"requires_manual_renewal"`
	NextPayment           time.Time `json:"next_payment,omitzero"`
	Billing               Contact   `json:"billing"`
	Meta                  Meta      `json:"meta,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// HasNextPayment reports whether a next payment date is set.
func (s *Subscription) HasNextPayment() bool {
	return !s.NextPayment.IsZero()
}

// SetMeta sets a metadata value, allocating the bag when needed.
func (s *Subscription) SetMeta(key, value string) {
	if s.Meta == nil {
		s.Meta = make(Meta)
	}
	s.Meta[key] = value
}

// DeleteMeta removes a metadata key and reports whether it was present.
func (s *Subscription) DeleteMeta(key string) bool {
	if _, ok := s.Meta[key]; !ok {
		return false
	}
	delete(s.Meta, key)
	return true
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	cp := *s
	cp.Meta = maps.Clone(s.Meta)
	return &cp
}

// Order is a payable transaction record.
type Order struct {
	ID             int64       `json:"id"`
	SubscriptionID int64       `json:"subscription_id"`
	Relation       Relation    `json:"relation"`
	Status         OrderStatus `json:"status"`
	Key            string      `json:"key"`
	Total          int64       `json:"total"`
	Currency       string      `json:"currency"`
	Billing        Contact     `json:"billing"`
	Meta           Meta        `json:"meta,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// SetMeta sets a metadata value, allocating the bag when needed.
func (o *Order) SetMeta(key, value string) {
	if o.Meta == nil {
		o.Meta = make(Meta)
	}
	o.Meta[key] = value
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Meta = maps.Clone(o.Meta)
	return &cp
}

// NoteTarget identifies what a note is attached to.
type NoteTarget string

const (
	NoteOnSubscription NoteTarget = "subscription"
	NoteOnOrder        NoteTarget = "order"
)

// Note is a free text audit entry on a subscription or order.
type Note struct {
	Target    NoteTarget `json:"target"`
	TargetID  int64      `json:"target_id"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
}

// Filter narrows subscription listings. Zero fields do not filter.
type Filter struct {
	Statuses   []Status
	HasMeta    string
	LacksMeta  string
	IDs        []int64
	ManualOnly bool
	Limit      int
	Offset     int
}
