package renewal

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Message names.
const (
	MessageRenewalNotice   = "renewal_notice"
	MessageEarlyReminder   = "early_reminder"
	MessageOverdueCustomer = "overdue_customer"
	MessageOverdueOperator = "overdue_operator"
)

//go:embed messages.yaml
var defaultMessages []byte

// MessageData is passed to message templates.
type MessageData struct {
	SiteName        string
	CustomerName    string
	CustomerEmail   string
	SubscriptionID  int64
	OrderID         int64
	DueDate         string
	PayURL          string
	RenewURL        string
	SubscriptionURL string
	OrderURL        string
}

type rawMessage struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiledMessage struct {
	subject *template.Template
	body    *template.Template
}

// Messages holds the compiled email copy.
type Messages struct {
	byName map[string]compiledMessage
}

// DefaultMessages returns the built-in copy.
func DefaultMessages() *Messages {
	m, err := ParseMessages(nil)
	if err != nil {
		panic(fmt.Sprintf("renewal: built-in messages: %v", err))
	}
	return m
}

// ParseMessages compiles YAML copy layered over the built-in messages.
// Empty fields in data keep the built-in text.
func ParseMessages(data []byte) (*Messages, error) {
	raw := map[string]rawMessage{}
	if err := yaml.Unmarshal(defaultMessages, &raw); err != nil {
		return nil, errors.Join(ErrLoadMessages, err)
	}
	if len(data) > 0 {
		override := map[string]rawMessage{}
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, errors.Join(ErrLoadMessages, err)
		}
		for name, msg := range override {
			base := raw[name]
			if msg.Subject != "" {
				base.Subject = msg.Subject
			}
			if msg.Body != "" {
				base.Body = msg.Body
			}
			raw[name] = base
		}
	}

	m := &Messages{byName: make(map[string]compiledMessage, len(raw))}
	for name, msg := range raw {
		subject, err := template.New(name + ".subject").Option("missingkey=error").Parse(msg.Subject)
		if err != nil {
			return nil, errors.Join(ErrLoadMessages, fmt.Errorf("%s subject: %w", name, err))
		}
		body, err := template.New(name + ".body").Option("missingkey=error").Parse(msg.Body)
		if err != nil {
			return nil, errors.Join(ErrLoadMessages, fmt.Errorf("%s body: %w", name, err))
		}
		m.byName[name] = compiledMessage{subject: subject, body: body}
	}
	return m, nil
}

// LoadMessages reads an override file. An empty path yields the defaults.
func LoadMessages(path string) (*Messages, error) {
	if path == "" {
		return DefaultMessages(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrLoadMessages, err)
	}
	return ParseMessages(data)
}

// Render executes the named message.
func (m *Messages) Render(name string, data MessageData) (subject, body string, err error) {
	msg, ok := m.byName[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownMessage, name)
	}

	var sb strings.Builder
	if err := msg.subject.Execute(&sb, data); err != nil {
		return "", "", errors.Join(ErrRenderMessage, err)
	}
	subject = strings.TrimSpace(sb.String())

	sb.Reset()
	if err := msg.body.Execute(&sb, data); err != nil {
		return "", "", errors.Join(ErrRenderMessage, err)
	}
	return subject, strings.TrimRight(sb.String(), "\n") + "\n", nil
}
