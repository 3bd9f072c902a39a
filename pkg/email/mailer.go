package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// EmailSender delivers a single message.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams describes one outbound message. At least one body is required.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html,omitempty"`
	BodyText string `json:"body_text,omitempty"`
	Tag      string `json:"tag,omitempty"`
	// Metadata is attached to the message for delivery lookups.
	Metadata map[string]string `json:"metadata,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the recipient address, subject and body.
func (p SendEmailParams) Validate() error {
	switch {
	case strings.TrimSpace(p.SendTo) == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidParams)
	case !emailRegex.MatchString(p.SendTo):
		return fmt.Errorf("%w: recipient %q is not a valid email address", ErrInvalidParams, p.SendTo)
	case strings.TrimSpace(p.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	case strings.TrimSpace(p.BodyHTML) == "" && strings.TrimSpace(p.BodyText) == "":
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

// BodyFormat tells a ContentFilter which body it is looking at.
type BodyFormat int

// Body formats.
const (
	FormatText BodyFormat = iota
	FormatHTML
)

// ContentFilter transforms a message body before delivery. Replacement text
// must be escaped for FormatHTML bodies only.
type ContentFilter func(ctx context.Context, body string, format BodyFormat) string

type filteredSender struct {
	next   EmailSender
	filter ContentFilter
}

// WithContentFilter returns a sender that runs both bodies through filter
// before handing the message to next. A nil filter returns next unchanged.
func WithContentFilter(next EmailSender, filter ContentFilter) EmailSender {
	if filter == nil {
		return next
	}
	return &filteredSender{next: next, filter: filter}
}

func (s *filteredSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if params.BodyHTML != "" {
		params.BodyHTML = s.filter(ctx, params.BodyHTML, FormatHTML)
	}
	if params.BodyText != "" {
		params.BodyText = s.filter(ctx, params.BodyText, FormatText)
	}
	return s.next.SendEmail(ctx, params)
}
