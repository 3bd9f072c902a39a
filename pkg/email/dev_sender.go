package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// DevSender writes messages to a directory instead of delivering them.
// Each message produces a JSON metadata file plus .html and/or .txt bodies.
type DevSender struct {
	dir string
	seq atomic.Uint64
	now func() time.Time
}

// NewDevSender creates a sender writing into dir, created on first send.
func NewDevSender(dir string) EmailSender {
	return &DevSender{dir: dir, now: time.Now}
}

type devMetadata struct {
	Timestamp string            `json:"timestamp"`
	SendTo    string            `json:"send_to"`
	Subject   string            `json:"subject"`
	Tag       string            `json:"tag,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SendEmail validates params and writes the message files.
func (d *DevSender) SendEmail(_ context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrFailedToSendEmail, err)
	}

	now := d.now()
	identifier := params.Tag
	if identifier == "" {
		identifier = params.Subject
	}
	// The sequence keeps names unique when several messages share a second.
	base := fmt.Sprintf("%s_%03d_%s", now.Format("2006_01_02_150405"), d.seq.Add(1), sanitizeFilename(identifier))

	if params.BodyHTML != "" {
		if err := os.WriteFile(filepath.Join(d.dir, base+".html"), []byte(params.BodyHTML), 0o644); err != nil {
			return fmt.Errorf("%w: write html body: %v", ErrFailedToSendEmail, err)
		}
	}
	if params.BodyText != "" {
		if err := os.WriteFile(filepath.Join(d.dir, base+".txt"), []byte(params.BodyText), 0o644); err != nil {
			return fmt.Errorf("%w: write text body: %v", ErrFailedToSendEmail, err)
		}
	}

	meta, err := json.MarshalIndent(devMetadata{
		Timestamp: now.Format(time.RFC3339),
		SendTo:    params.SendTo,
		Subject:   params.Subject,
		Tag:       params.Tag,
		Metadata:  params.Metadata,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %v", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0o644); err != nil {
		return fmt.Errorf("%w: write metadata: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return "email"
	}
	return strings.ToLower(s)
}
