// Package email sends transactional mail through a provider-agnostic
// EmailSender interface.
//
// Implementations:
//
//   - Postmark client (NewPostmarkClient) for production, built on
//     github.com/mrz1836/postmark; it sends on the configured message stream,
//     attaches Metadata and disables link tracking so links reach the
//     customer unchanged
//   - DevSender, which writes each message to a directory as JSON metadata
//     plus .html and .txt bodies for local inspection
//
// WithContentFilter wraps any sender and passes every body through a
// ContentFilter first. The filter learns whether it sees the HTML or the
// plain text body, so it can escape replacement text only where markup is
// expected. The renewal service uses it to rewrite payment links.
//
// # Configuration
//
//	POSTMARK_SERVER_TOKEN    server API token
//	POSTMARK_ACCOUNT_TOKEN   account API token
//	POSTMARK_MESSAGE_STREAM  message stream (default outbound)
//	SENDER_EMAIL             From address
//	SUPPORT_EMAIL            Reply-To address
//	EMAIL_DEV_DIR            DevSender directory (default ./tmp/emails)
//
// Without both Postmark tokens Config.PostmarkEnabled reports false and the
// service falls back to DevSender.
//
// # Usage
//
//	var cfg email.Config
//	config.MustLoad(&cfg)
//
//	var sender email.EmailSender = email.NewDevSender(cfg.DevDir)
//	if cfg.PostmarkEnabled() {
//		if sender, err = email.NewPostmarkClient(cfg); err != nil {
//			return err
//		}
//	}
//
//	sender = email.WithContentFilter(sender, func(ctx context.Context, body string, f email.BodyFormat) string {
//		return strings.ReplaceAll(body, "{site}", "Example Shop")
//	})
//
//	err := sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "customer@example.com",
//		Subject:  "Your renewal is due",
//		BodyHTML: html,
//		BodyText: text,
//		Tag:      "renewal",
//		Metadata: map[string]string{"subscription_id": "42"},
//	})
//
// HTML bodies are usually produced from templ components with
// templates.Render.
//
// # Errors
//
// SendEmailParams.Validate returns ErrInvalidParams for a bad recipient,
// an empty subject or a missing body. NewPostmarkClient reports every
// configuration problem at once, joined with ErrInvalidConfig. Provider
// failures are wrapped with ErrFailedToSendEmail.
package email
