package renewal_test

import (
	"html"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/renewal"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

func TestCustomerMailer(t *testing.T) {
	t.Parallel()

	t.Run("renewal notice links to the pending order", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.install()
		e.installMailer()
		sub := e.seed()

		e.fireRenewalNotice(sub.ID)

		orders := e.renewalOrders(sub.ID)
		require.Len(t, orders, 1)
		notices := e.sender.sentWithTag("renewal-notice")
		require.Len(t, notices, 1)
		assert.Equal(t, "ada@example.com", notices[0].SendTo)
		assert.Equal(t, "Your Acme subscription renews on March 11, 2024", notices[0].Subject)
		assert.Contains(t, notices[0].BodyHTML, html.EscapeString(renewal.OrderPayURL(e.cfg.CheckoutURL, orders[0], true)))
		assert.NotContains(t, notices[0].BodyHTML, "subscription_renewal_early")
	})

	t.Run("early reminder", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.install()
		e.installMailer()
		sub := e.seed()

		require.NoError(t, e.d.Do(e.ctx, renewal.ActionEarlyReminder, renewal.SubscriptionArgs{SubscriptionID: sub.ID}))

		sent := e.sender.sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "renewal-early-reminder", sent[0].Tag)
		assert.Equal(t, "Reminder: your Acme subscription renews on March 11, 2024", sent[0].Subject)
		// no pending order yet, so the early renewal link stays
		assert.Contains(t, sent[0].BodyHTML, html.EscapeString(renewal.EarlyRenewalURL(e.cfg.SiteURL, sub.ID)))
		assert.Contains(t, sent[0].BodyHTML, `<a href="`)
	})

	t.Run("skips subscriptions without email or due date", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		m := renewal.NewCustomerMailer(e.subs, e.sender, nil, e.cfg, e.opts()...)
		noEmail := e.seed(func(s *subscription.Subscription) { s.Billing.Email = "" })
		noDue := e.seed(dueAt(time.Time{}))

		require.NoError(t, m.SendRenewalNotice(e.ctx, renewal.SubscriptionArgs{SubscriptionID: noEmail.ID}))
		require.NoError(t, m.SendRenewalNotice(e.ctx, renewal.SubscriptionArgs{SubscriptionID: noDue.ID}))
		require.NoError(t, m.SendRenewalNotice(e.ctx, renewal.SubscriptionArgs{SubscriptionID: 404}))
		assert.Empty(t, e.sender.sent())
	})

	t.Run("send failure is returned", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.sender = &MockEmailSender{}
		e.sender.On("SendEmail", mock.Anything, mock.Anything).Return(assert.AnError)
		m := renewal.NewCustomerMailer(e.subs, e.sender, nil, e.cfg, e.opts()...)
		sub := e.seed()

		assert.ErrorIs(t, m.SendRenewalNotice(e.ctx, renewal.SubscriptionArgs{SubscriptionID: sub.ID}), assert.AnError)
	})
}
