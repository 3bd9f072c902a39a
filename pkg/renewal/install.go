package renewal

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrymomot/renewalkit/pkg/adminlist"
	"github.com/dmitrymomot/renewalkit/pkg/email"
	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/queue"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// Deps are the host capabilities the extension consumes.
type Deps struct {
	Subscriptions subscription.Service
	Queue         TaskQueue
	// Scheduler is the host notification scheduler to extend.
	Scheduler NotificationScheduler
	Mailer    email.EmailSender
	// Messages overrides the built-in email copy.
	Messages *Messages
}

func (d Deps) missing() []string {
	var out []string
	if d.Subscriptions == nil {
		out = append(out, "subscription service")
	}
	if d.Queue == nil {
		out = append(out, "task queue")
	}
	if d.Scheduler == nil {
		out = append(out, "notification scheduler")
	}
	if d.Mailer == nil {
		out = append(out, "mailer")
	}
	return out
}

// Extension is an installed set of handlers.
type Extension struct {
	Scheduler      *ExtendedScheduler
	EarlyReminders *EarlyReminderSender
	Coordinator    *Coordinator
	Rewriter       *URLRewriter
	Overdue        *OverdueDetector
	Corrector      *ScheduleCorrector
	Admin          *AdminAugmentation

	hooks *hooks.Dispatcher
}

// Install builds every component and registers it on d. When a dependency
// is missing nothing is registered except an admin notice, and the error
// wraps ErrMissingDependency.
func Install(d *hooks.Dispatcher, deps Deps, cfg Config, opts ...Option) (*Extension, error) {
	o := newOptions(opts)
	if d == nil {
		return nil, fmt.Errorf("%w: signal dispatcher", ErrMissingDependency)
	}
	if missing := deps.missing(); len(missing) > 0 {
		err := fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
		o.logger.Error("renewal extension not installed", logger.Error(err))
		notice := adminlist.Notice{
			Level:   adminlist.NoticeError,
			Message: "Extended renewal reminders is inactive. Missing: " + strings.Join(missing, ", ") + ".",
		}
		hooks.Filter(d, adminlist.FilterNotices, hooks.PriorityDefault,
			func(_ context.Context, notices []adminlist.Notice) ([]adminlist.Notice, error) {
				return append(notices, notice), nil
			})
		return nil, err
	}

	msgs := deps.Messages
	if msgs == nil {
		msgs = DefaultMessages()
	}

	ext := &Extension{
		Scheduler:      NewExtendedScheduler(deps.Scheduler, deps.Queue, cfg, opts...),
		EarlyReminders: NewEarlyReminderSender(deps.Subscriptions, d, opts...),
		Coordinator:    NewCoordinator(deps.Subscriptions, deps.Queue, cfg, opts...),
		Rewriter:       NewURLRewriter(deps.Subscriptions, cfg, opts...),
		Overdue:        NewOverdueDetector(deps.Subscriptions, deps.Mailer, msgs, cfg, opts...),
		Corrector:      NewScheduleCorrector(deps.Subscriptions, cfg, opts...),
		Admin:          NewAdminAugmentation(deps.Subscriptions, cfg, opts...),
		hooks:          d,
	}

	ext.Scheduler.Register(d)
	ext.EarlyReminders.Register(d)
	ext.Coordinator.Register(d)
	ext.Rewriter.Register(d)
	ext.Overdue.Register(d)
	ext.Corrector.Register(d)
	ext.Admin.Register(d)

	o.logger.Info("renewal extension installed")
	return ext, nil
}

// TaskHandlers returns queue handlers that dispatch the extension's actions.
func (e *Extension) TaskHandlers() []queue.Handler {
	return TaskHandlers(e.hooks)
}

// RegisterDailySweep schedules the daily overdue sweep on s.
func (e *Extension) RegisterDailySweep(s *queue.Scheduler, opts ...queue.SchedulerTaskOption) error {
	return RegisterDailySweep(s, opts...)
}

// TaskHandlers returns queue handlers that turn due actions into signals of
// the same name on d.
func TaskHandlers(d *hooks.Dispatcher) []queue.Handler {
	return []queue.Handler{
		forward[SubscriptionArgs](d, ActionRenewalNotification),
		forward[SubscriptionArgs](d, ActionEarlyReminder),
		forward[OverdueArgs](d, ActionCheckOverdue),
		queue.NewPeriodicTaskHandler(ActionDailyOverdueCheck, func(ctx context.Context) error {
			return d.Do(ctx, ActionDailyOverdueCheck, nil)
		}),
	}
}

func forward[T any](d *hooks.Dispatcher, action string) queue.Handler {
	return queue.NewActionHandler(action, func(ctx context.Context, args T) error {
		return d.Do(ctx, action, args)
	})
}

// MailContentFilter passes outgoing mail bodies through FilterMailContent.
// Use it with email.WithContentFilter. A failing filter is logged and skipped.
func MailContentFilter(d *hooks.Dispatcher, opts ...Option) email.ContentFilter {
	o := newOptions(opts)
	return func(ctx context.Context, body string, format email.BodyFormat) string {
		out, err := hooks.Apply(ctx, d, FilterMailContent, MailContent{Body: body, Format: format})
		if err != nil {
			o.logger.WarnContext(ctx, "mail content filter failed", logger.Error(err))
		}
		return out.Body
	}
}
