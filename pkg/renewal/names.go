package renewal

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// Metadata keys owned by the extension.
const (
	// MetaOriginalNextPayment snapshots the due date while a manual renewal is awaited.
	MetaOriginalNextPayment = "_renewal_original_next_payment"
	// MetaOverdueSince marks a subscription whose renewal is overdue.
	MetaOverdueSince = "_renewal_overdue_since"
	// MetaAutoLogin marks renewal orders payable through a login-free link.
	MetaAutoLogin = "_renewal_autologin"
)

// Scheduled actions. Each is dispatched as a signal of the same name when due.
const (
	ActionRenewalNotification = "customer_notification_renewal"
	ActionEarlyReminder       = "customer_notification_renewal_reminder"
	ActionCheckOverdue        = "renewal_check_overdue"
	ActionDailyOverdueCheck   = "renewal_daily_overdue_check"
)

// Signals and filters.
const (
	// SignalEarlyReminderNotification asks the host mailer to send the early reminder.
	SignalEarlyReminderNotification = "subscription_notification_renewal_reminder"
	// FilterMailContent rewrites outgoing mail bodies.
	FilterMailContent = "mail_content"
)

// SubscriptionArgs are the arguments of per-subscription notification actions.
type SubscriptionArgs struct {
	SubscriptionID int64 `json:"subscription_id"`
}

// OverdueArgs are the arguments of ActionCheckOverdue.
type OverdueArgs struct {
	SubscriptionID int64 `json:"subscription_id"`
	OrderID        int64 `json:"order_id"`
}

// EarlyReminder is the payload of SignalEarlyReminderNotification.
type EarlyReminder struct {
	Subscription *subscription.Subscription
	NextPayment  time.Time
}

func formatMetaTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseMetaTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func slogMessage(name string) slog.Attr {
	return slog.String("message", name)
}
