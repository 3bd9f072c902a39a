package renewal

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/renewalkit/pkg/email"
	"github.com/dmitrymomot/renewalkit/pkg/email/templates"
	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// messageHTML renders a plain text message as paragraphs. Lines holding
// only a URL become links.
func messageHTML(body string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(`<div class="message">`)
		for _, para := range strings.Split(strings.TrimSpace(body), "\n\n") {
			sb.WriteString("<p>")
			for i, line := range strings.Split(para, "\n") {
				if i > 0 {
					sb.WriteString("<br>")
				}
				line = strings.TrimSpace(line)
				if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
					esc := templ.EscapeString(line)
					sb.WriteString(`<a href="` + esc + `">` + esc + `</a>`)
					continue
				}
				sb.WriteString(templ.EscapeString(line))
			}
			sb.WriteString("</p>")
		}
		sb.WriteString("</div>")
		_, err := io.WriteString(w, sb.String())
		return err
	})
}

type mailFormat int

const (
	mailText mailFormat = iota
	mailHTML
)

func sendMessage(ctx context.Context, sender email.EmailSender, msgs *Messages, name, to, tag string, format mailFormat, data MessageData) error {
	subject, body, err := msgs.Render(name, data)
	if err != nil {
		return err
	}
	params := email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		Tag:      tag,
		Metadata: map[string]string{"subscription_id": strconv.FormatInt(data.SubscriptionID, 10)},
	}
	if data.OrderID > 0 {
		params.Metadata["order_id"] = strconv.FormatInt(data.OrderID, 10)
	}
	switch format {
	case mailHTML:
		params.BodyHTML, err = templates.Render(ctx, messageHTML(body))
		if err != nil {
			return errors.Join(ErrRenderMessage, err)
		}
	default:
		params.BodyText = body
	}
	return sender.SendEmail(ctx, params)
}

// CustomerMailer is the reference host mailer: it sends the standard renewal
// notice and the early reminder, both linking to the early renewal page.
type CustomerMailer struct {
	subs   subscription.Service
	sender email.EmailSender
	msgs   *Messages
	cfg    Config
	opts   options
}

// NewCustomerMailer returns a mailer. A nil msgs uses DefaultMessages.
func NewCustomerMailer(subs subscription.Service, sender email.EmailSender, msgs *Messages, cfg Config, opts ...Option) *CustomerMailer {
	if msgs == nil {
		msgs = DefaultMessages()
	}
	return &CustomerMailer{subs: subs, sender: sender, msgs: msgs, cfg: cfg, opts: newOptions(opts)}
}

// SendRenewalNotice handles ActionRenewalNotification.
func (m *CustomerMailer) SendRenewalNotice(ctx context.Context, args SubscriptionArgs) error {
	sub, err := m.subs.Subscription(ctx, args.SubscriptionID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.send(ctx, sub, MessageRenewalNotice, "renewal-notice")
}

// SendEarlyReminder handles SignalEarlyReminderNotification.
func (m *CustomerMailer) SendEarlyReminder(ctx context.Context, r EarlyReminder) error {
	return m.send(ctx, r.Subscription, MessageEarlyReminder, "renewal-early-reminder")
}

func (m *CustomerMailer) send(ctx context.Context, sub *subscription.Subscription, name, tag string) error {
	if !sub.HasNextPayment() || sub.Billing.Email == "" {
		return nil
	}
	data := MessageData{
		SiteName:       m.cfg.SiteName,
		CustomerName:   sub.Billing.FirstName,
		CustomerEmail:  sub.Billing.Email,
		SubscriptionID: sub.ID,
		DueDate:        sub.NextPayment.Format(m.cfg.DateFormat),
		RenewURL:       EarlyRenewalURL(m.cfg.SiteURL, sub.ID),
	}
	if err := sendMessage(ctx, m.sender, m.msgs, name, sub.Billing.Email, tag, mailHTML, data); err != nil {
		m.opts.logger.ErrorContext(ctx, "failed to send customer notification",
			logger.SubscriptionID(sub.ID),
			slogMessage(name),
			logger.Error(err))
		return err
	}
	return nil
}

// Register sends the renewal notice on ActionRenewalNotification and the early
// reminder on SignalEarlyReminderNotification.
func (m *CustomerMailer) Register(d *hooks.Dispatcher) {
	hooks.On(d, ActionRenewalNotification, hooks.PriorityDefault, m.SendRenewalNotice)
	hooks.On(d, SignalEarlyReminderNotification, hooks.PriorityDefault, m.SendEarlyReminder)
}
