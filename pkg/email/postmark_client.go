package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

type postmarkClient struct {
	api    *postmark.Client
	from   string
	reply  string
	stream string
}

// NewPostmarkClient returns a sender delivering through Postmark's
// transactional stream. Replies go to the support address.
func NewPostmarkClient(cfg Config) (EmailSender, error) {
	var errs []error
	if !cfg.PostmarkEnabled() {
		errs = append(errs, errors.New("postmark server and account tokens are required"))
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		errs = append(errs, fmt.Errorf("sender %q is not a valid email address", cfg.SenderEmail))
	}
	if !emailRegex.MatchString(cfg.SupportEmail) {
		errs = append(errs, fmt.Errorf("support %q is not a valid email address", cfg.SupportEmail))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return &postmarkClient{
		api:    postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.SenderEmail,
		reply:  cfg.SupportEmail,
		stream: cfg.MessageStream,
	}, nil
}

func (c *postmarkClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := c.api.SendEmail(ctx, postmark.Email{
		From:          c.from,
		ReplyTo:       c.reply,
		To:            params.SendTo,
		Subject:       params.Subject,
		Tag:           params.Tag,
		HTMLBody:      params.BodyHTML,
		TextBody:      params.BodyText,
		Metadata:      params.Metadata,
		MessageStream: c.stream,
		TrackLinks:    "None",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode != 0 {
		return fmt.Errorf("%w: postmark error %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}
	return nil
}
