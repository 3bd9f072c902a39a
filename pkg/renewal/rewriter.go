package renewal

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrymomot/renewalkit/pkg/email"
	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

var earlyRenewalParam = regexp.MustCompile(`[?&]subscription_renewal_early=(\d+)`)

// URLRewriter replaces early renewal links, which require the customer to
// log in, with a direct order-pay link for the pending renewal order.
type URLRewriter struct {
	subs subscription.Service
	cfg  Config
	opts options
}

// NewURLRewriter returns a rewriter building pay links from cfg.CheckoutURL.
func NewURLRewriter(subs subscription.Service, cfg Config, opts ...Option) *URLRewriter {
	return &URLRewriter{subs: subs, cfg: cfg, opts: newOptions(opts)}
}

// MailContent is the value passed through FilterMailContent.
type MailContent struct {
	Body   string
	Format email.BodyFormat
}

// Rewrite returns content with every early renewal URL of the first
// referenced subscription replaced. The pay link is HTML-escaped only for
// FormatHTML content. Content is returned unchanged when the subscription or
// its pending order cannot be found.
func (r *URLRewriter) Rewrite(ctx context.Context, content string, format email.BodyFormat) (string, error) {
	m := earlyRenewalParam.FindStringSubmatch(content)
	if m == nil {
		return content, nil
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return content, nil
	}

	sub, err := r.subs.Subscription(ctx, id)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return content, nil
	}
	if err != nil {
		return content, err
	}
	order, err := PendingRenewalOrder(ctx, r.subs, sub)
	if err != nil || order == nil {
		return content, err
	}

	pattern, err := regexp.Compile(`https?://[^\s"'<>]+[?&]subscription_renewal_early=` + m[1] + `\b[^\s"'<>]*`)
	if err != nil {
		return content, err
	}
	payURL := OrderPayURL(r.cfg.CheckoutURL, order, true)
	if format == email.FormatHTML {
		payURL = html.EscapeString(payURL)
	}
	out := pattern.ReplaceAllLiteralString(content, payURL)

	if out != content {
		r.opts.logger.DebugContext(ctx, "renewal link rewritten",
			logger.SubscriptionID(sub.ID),
			logger.OrderID(order.ID))
	}
	return out, nil
}

// Register adds the rewrite to FilterMailContent.
func (r *URLRewriter) Register(d *hooks.Dispatcher) {
	hooks.Filter(d, FilterMailContent, hooks.PriorityDefault, func(ctx context.Context, c MailContent) (MailContent, error) {
		body, err := r.Rewrite(ctx, c.Body, c.Format)
		if err != nil {
			return c, err
		}
		c.Body = body
		return c, nil
	})
}

// OrderPayURL builds <checkout>/order-pay/<id>/?pay_for_order=true&key=<key>,
// adding subscription_renewal=true for renewal links.
func OrderPayURL(checkoutURL string, order *subscription.Order, renewal bool) string {
	q := url.Values{}
	q.Set("pay_for_order", "true")
	q.Set("key", order.Key)
	if renewal {
		q.Set("subscription_renewal", "true")
	}
	return fmt.Sprintf("%s/order-pay/%d/?%s", strings.TrimRight(checkoutURL, "/"), order.ID, q.Encode())
}

// EarlyRenewalURL is the host's login-required early renewal link.
func EarlyRenewalURL(siteURL string, subscriptionID int64) string {
	return fmt.Sprintf("%s/my-account/view-subscription/%d/?subscription_renewal_early=%d&subscription_renewal=true",
		strings.TrimRight(siteURL, "/"), subscriptionID, subscriptionID)
}
