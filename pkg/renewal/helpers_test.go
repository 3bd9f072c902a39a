package renewal_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/email"
	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/queue"
	"github.com/dmitrymomot/renewalkit/pkg/renewal"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

var baseNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockEmailSender) sent() []email.SendEmailParams {
	var out []email.SendEmailParams
	for _, c := range m.Calls {
		if c.Method == "SendEmail" {
			out = append(out, c.Arguments.Get(1).(email.SendEmailParams))
		}
	}
	return out
}

func (m *MockEmailSender) sentWithTag(tag string) []email.SendEmailParams {
	var out []email.SendEmailParams
	for _, p := range m.sent() {
		if p.Tag == tag {
			out = append(out, p)
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv wires an in-memory host: subscription service, task queue and
// dispatcher, all sharing one controllable clock.
type testEnv struct {
	t       *testing.T
	ctx     context.Context
	now     time.Time
	cfg     renewal.Config
	d       *hooks.Dispatcher
	store   *subscription.MemoryStore
	subs    subscription.Service
	tasks   *queue.MemoryStorage
	actions *queue.Actions
	sender  *MockEmailSender
	ext     *renewal.Extension
}

func newEnv(t *testing.T, mut ...func(*renewal.Config)) *testEnv {
	t.Helper()

	e := &testEnv{t: t, ctx: context.Background(), now: baseNow}
	e.cfg = renewal.DefaultConfig()
	e.cfg.SiteName = "Acme"
	e.cfg.SiteURL = "https://shop.test"
	e.cfg.CheckoutURL = "https://shop.test/checkout"
	e.cfg.AdminURL = "https://shop.test/admin"
	e.cfg.OperatorEmail = "ops@shop.test"
	for _, m := range mut {
		m(&e.cfg)
	}

	e.d = hooks.New(hooks.WithLogger(discardLogger()))
	e.store = subscription.NewMemoryStore()
	e.subs = subscription.NewService(e.store,
		subscription.WithEmitter(e.d),
		subscription.WithClock(e.clock),
		subscription.WithLogger(discardLogger()))

	e.tasks = queue.NewMemoryStorage()
	t.Cleanup(func() { _ = e.tasks.Close() })

	var err error
	e.actions, err = queue.NewActions(e.tasks, queue.WithActionsLogger(discardLogger()))
	require.NoError(t, err)

	e.sender = &MockEmailSender{}
	e.sender.On("SendEmail", mock.Anything, mock.Anything).Return(nil).Maybe()
	return e
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) opts() []renewal.Option {
	return []renewal.Option{renewal.WithClock(e.clock), renewal.WithLogger(discardLogger())}
}

func (e *testEnv) standardScheduler() *renewal.StandardScheduler {
	return renewal.NewStandardScheduler(e.actions, e.cfg, e.opts()...)
}

// install registers the whole extension over the reference scheduler.
func (e *testEnv) install() *renewal.Extension {
	e.t.Helper()
	ext, err := renewal.Install(e.d, renewal.Deps{
		Subscriptions: e.subs,
		Queue:         e.actions,
		Scheduler:     e.standardScheduler(),
		Mailer:        e.sender,
	}, e.cfg, e.opts()...)
	require.NoError(e.t, err)
	e.ext = ext
	return ext
}

// installMailer registers the reference customer mailer, sending through the
// mail content filter like the service does.
func (e *testEnv) installMailer() {
	sender := email.WithContentFilter(e.sender, renewal.MailContentFilter(e.d, e.opts()...))
	renewal.NewCustomerMailer(e.subs, sender, nil, e.cfg, e.opts()...).Register(e.d)
}

func (e *testEnv) seed(mut ...func(*subscription.Subscription)) *subscription.Subscription {
	e.t.Helper()
	sub := &subscription.Subscription{
		Status:                subscription.StatusActive,
		BillingInterval:       1,
		BillingPeriod:         subscription.PeriodMonth,
		RequiresManualRenewal: true,
		NextPayment:           baseNow.AddDate(0, 0, 10),
		Billing:               subscription.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
	}
	for _, m := range mut {
		m(sub)
	}
	require.NoError(e.t, e.subs.Save(e.ctx, sub))
	return sub
}

func (e *testEnv) reload(id int64) *subscription.Subscription {
	e.t.Helper()
	sub, err := e.subs.Subscription(e.ctx, id)
	require.NoError(e.t, err)
	return sub
}

func (e *testEnv) renewalOrders(id int64) []*subscription.Order {
	e.t.Helper()
	orders, err := e.subs.RenewalOrders(e.ctx, id)
	require.NoError(e.t, err)
	return orders
}

func (e *testEnv) notes(id int64) []string {
	e.t.Helper()
	notes, err := e.subs.Notes(e.ctx, subscription.NoteOnSubscription, id)
	require.NoError(e.t, err)
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Body)
	}
	return out
}

// fireRenewalNotice runs the standard reminder as the worker would.
func (e *testEnv) fireRenewalNotice(id int64) {
	e.t.Helper()
	require.NoError(e.t, e.d.Do(e.ctx, renewal.ActionRenewalNotification, renewal.SubscriptionArgs{SubscriptionID: id}))
}

func manual(v bool) func(*subscription.Subscription) {
	return func(s *subscription.Subscription) { s.RequiresManualRenewal = v }
}

func withStatus(st subscription.Status) func(*subscription.Subscription) {
	return func(s *subscription.Subscription) { s.Status = st }
}

func dueAt(t time.Time) func(*subscription.Subscription) {
	return func(s *subscription.Subscription) { s.NextPayment = t }
}
