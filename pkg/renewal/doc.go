// Package renewal extends the manual renewal workflow of a subscription
// platform.
//
// The extension is a set of handlers registered on a hooks.Dispatcher:
//
//   - ExtendedScheduler adds an early reminder halfway between the standard
//     renewal notification and the due date.
//   - Coordinator creates a payable renewal order when the standard reminder
//     fires, then puts the subscription on hold and schedules an overdue check.
//   - URLRewriter swaps the login-only early renewal link in outgoing mail for
//     a direct order-pay link.
//   - OverdueDetector flags unpaid renewals once, notifies the customer and
//     the operator, and clears the flag on payment. A daily sweep catches
//     subscriptions that went overdue by any other path.
//   - ScheduleCorrector restores the original billing anchor after a late
//     payment.
//   - AdminAugmentation adds the overdue column, view, filter and highlight
//     to the admin subscription list.
//
// Install wires all of them:
//
//	ext, err := renewal.Install(dispatcher, renewal.Deps{...}, cfg)
//	worker.RegisterHandler(ext.TaskHandlers()...)
//	ext.RegisterDailySweep(scheduler, queue.WithTaskQueue(queueCfg.Name))
//
// Scheduled actions are dispatched as signals of the same name, so several
// handlers can react to one task in priority order.
//
// # Configuration
//
//	RENEWAL_NOTICE_PERIOD   standard reminder lead time (default 72h)
//	RENEWAL_GRACE_PERIOD    time after the due date before a renewal is overdue (default 24h)
//	OPERATOR_EMAIL          recipient of overdue alerts (required)
//	CHECKOUT_URL            base of the order-pay links
//	RENEWAL_MESSAGES_FILE   YAML file overriding the built-in email copy
//
// # Mail content
//
// MailContentFilter adapts FilterMailContent to email.WithContentFilter.
// Filters receive a MailContent carrying the body format, so the pay link is
// HTML-escaped in HTML bodies and left as is in plain text:
//
//	sender = email.WithContentFilter(sender, renewal.MailContentFilter(d))
//
// # Errors
//
// Install returns ErrMissingDependency when the host did not provide a
// subscription service, task queue, notification scheduler or mailer. The
// admin list then shows a notice naming what is missing. Message loading and
// rendering failures wrap ErrLoadMessages and ErrRenderMessage.
package renewal
