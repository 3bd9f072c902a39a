package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/renewalkit/pkg/pg"
)

// DBTX is the subset of pgx used by PGStore; *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is a PostgreSQL backed Store. Schema lives in the migrations package.
type PGStore struct {
	db DBTX
}

// NewPGStore creates a PGStore over db.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

const subscriptionColumns = `id, customer_id, status, billing_interval, billing_period,
	requires_manual_renewal, next_payment, billing, meta, created_at, updated_at`

const orderColumns = `id, subscription_id, relation, status, order_key, total, currency,
	billing, meta, created_at, updated_at`

func (s *PGStore) GetSubscription(ctx context.Context, id int64) (*Subscription, error) {
	row := s.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if pg.IsNotFoundError(err) {
		return nil, ErrSubscriptionNotFound
	}
	return sub, err
}

// SaveSubscription inserts when ID is zero and upserts by id otherwise, so
// rows mirrored from the host keep their ids.
func (s *PGStore) SaveSubscription(ctx context.Context, sub *Subscription) error {
	billing, meta, err := encodeJSON(sub.Billing, sub.Meta)
	if err != nil {
		return err
	}

	args := []any{
		sub.CustomerID, sub.Status, sub.BillingInterval, sub.BillingPeriod,
		sub.RequiresManualRenewal, nullTime(sub.NextPayment), billing, meta,
		sub.CreatedAt, sub.UpdatedAt,
	}

	if sub.ID == 0 {
		return s.db.QueryRow(ctx, `INSERT INTO subscriptions
			(customer_id, status, billing_interval, billing_period, requires_manual_renewal,
			 next_payment, billing, meta, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`, args...).Scan(&sub.ID)
	}

	_, err = s.db.Exec(ctx, `INSERT INTO subscriptions
		(customer_id, status, billing_interval, billing_period, requires_manual_renewal,
		 next_payment, billing, meta, created_at, updated_at, id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			status = EXCLUDED.status,
			billing_interval = EXCLUDED.billing_interval,
			billing_period = EXCLUDED.billing_period,
			requires_manual_renewal = EXCLUDED.requires_manual_renewal,
			next_payment = EXCLUDED.next_payment,
			billing = EXCLUDED.billing,
			meta = EXCLUDED.meta,
			updated_at = EXCLUDED.updated_at`, append(args, sub.ID)...)
	if err != nil {
		return fmt.Errorf("failed to save subscription %d: %w", sub.ID, err)
	}
	return nil
}

func (s *PGStore) ListSubscriptions(ctx context.Context, f Filter) ([]*Subscription, error) {
	where, args := filterClause(f)
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions` + where + ` ORDER BY id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *PGStore) CountSubscriptions(ctx context.Context, f Filter) (int, error) {
	where, args := filterClause(f)
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM subscriptions`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return n, nil
}

func (s *PGStore) GetOrder(ctx context.Context, id int64) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if pg.IsNotFoundError(err) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// SaveOrder inserts or upserts o like SaveSubscription.
func (s *PGStore) SaveOrder(ctx context.Context, o *Order) error {
	billing, meta, err := encodeJSON(o.Billing, o.Meta)
	if err != nil {
		return err
	}

	args := []any{
		o.SubscriptionID, o.Relation, o.Status, o.Key, o.Total, o.Currency,
		billing, meta, o.CreatedAt, o.UpdatedAt,
	}

	if o.ID == 0 {
		return s.db.QueryRow(ctx, `INSERT INTO orders
			(subscription_id, relation, status, order_key, total, currency, billing, meta, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`, args...).Scan(&o.ID)
	}

	_, err = s.db.Exec(ctx, `INSERT INTO orders
		(subscription_id, relation, status, order_key, total, currency, billing, meta, created_at, updated_at, id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			subscription_id = EXCLUDED.subscription_id,
			relation = EXCLUDED.relation,
			status = EXCLUDED.status,
			order_key = EXCLUDED.order_key,
			total = EXCLUDED.total,
			currency = EXCLUDED.currency,
			billing = EXCLUDED.billing,
			meta = EXCLUDED.meta,
			updated_at = EXCLUDED.updated_at`, append(args, o.ID)...)
	if err != nil {
		return fmt.Errorf("failed to save order %d: %w", o.ID, err)
	}
	return nil
}

func (s *PGStore) ListOrders(ctx context.Context, subscriptionID int64) ([]*Order, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE subscription_id = $1 ORDER BY id DESC`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PGStore) AddNote(ctx context.Context, n Note) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO notes (target, target_id, body, created_at) VALUES ($1, $2, $3, $4)`,
		n.Target, n.TargetID, n.Body, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}
	return nil
}

func (s *PGStore) ListNotes(ctx context.Context, target NoteTarget, id int64) ([]Note, error) {
	rows, err := s.db.Query(ctx,
		`SELECT target, target_id, body, created_at FROM notes
		 WHERE target = $1 AND target_id = $2 ORDER BY id`, target, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.Target, &n.TargetID, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func filterClause(f Filter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		conds = append(conds, "status = ANY("+arg(statuses)+")")
	}
	if len(f.IDs) > 0 {
		conds = append(conds, "id = ANY("+arg(f.IDs)+")")
	}
	if f.ManualOnly {
		conds = append(conds, "requires_manual_renewal")
	}
	if f.HasMeta != "" {
		conds = append(conds, "meta ? "+arg(f.HasMeta))
	}
	if f.LacksMeta != "" {
		conds = append(conds, "NOT (meta ? "+arg(f.LacksMeta)+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub           Subscription
		next          *time.Time
		billing, meta []byte
	)
	err := row.Scan(&sub.ID, &sub.CustomerID, &sub.Status, &sub.BillingInterval, &sub.BillingPeriod,
		&sub.RequiresManualRenewal, &next, &billing, &meta, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if next != nil {
		sub.NextPayment = next.UTC()
	}
	if err := decodeJSON(billing, &sub.Billing, meta, &sub.Meta); err != nil {
		return nil, err
	}
	return &sub, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o             Order
		billing, meta []byte
	)
	err := row.Scan(&o.ID, &o.SubscriptionID, &o.Relation, &o.Status, &o.Key, &o.Total, &o.Currency,
		&billing, &meta, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(billing, &o.Billing, meta, &o.Meta); err != nil {
		return nil, err
	}
	return &o, nil
}

func encodeJSON(billing Contact, meta Meta) ([]byte, []byte, error) {
	b, err := json.Marshal(billing)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode billing: %w", err)
	}
	if meta == nil {
		meta = Meta{}
	}
	m, err := json.Marshal(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode meta: %w", err)
	}
	return b, m, nil
}

func decodeJSON(billing []byte, c *Contact, meta []byte, m *Meta) error {
	if len(billing) > 0 {
		if err := json.Unmarshal(billing, c); err != nil {
			return fmt.Errorf("failed to decode billing: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, m); err != nil {
			return fmt.Errorf("failed to decode meta: %w", err)
		}
	}
	if len(*m) == 0 {
		*m = nil
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
