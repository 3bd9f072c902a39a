package renewal

import "time"

// Config holds the extension settings.
type Config struct {
	// NoticePeriod is how long before the due date the standard reminder fires.
	NoticePeriod time.Duration `env:"RENEWAL_NOTICE_PERIOD" envDefault:"72h"`
	// GracePeriod is how long after the due date an unpaid renewal becomes overdue.
	GracePeriod time.Duration `env:"RENEWAL_GRACE_PERIOD" envDefault:"24h"`
	// NotificationsEnabled switches customer notifications off globally.
	NotificationsEnabled bool `env:"RENEWAL_NOTIFICATIONS_ENABLED" envDefault:"true"`

	SiteName      string `env:"SITE_NAME" envDefault:"Renewals"`
	SiteURL       string `env:"SITE_URL" envDefault:"http://localhost:8080"`
	CheckoutURL   string `env:"CHECKOUT_URL" envDefault:"http://localhost:8080/checkout"`
	AdminURL      string `env:"ADMIN_URL" envDefault:"http://localhost:8080/admin"`
	// OperatorEmail receives overdue alerts.
	OperatorEmail string `env:"OPERATOR_EMAIL,required"`

	// DateFormat is a Go time layout used in notes and admin cells.
	DateFormat string `env:"RENEWAL_DATE_FORMAT" envDefault:"January 2, 2006"`
	// MessagesFile optionally overrides the built-in email copy.
	MessagesFile string `env:"RENEWAL_MESSAGES_FILE"`
}

// DefaultConfig returns the settings used when no environment is loaded.
func DefaultConfig() Config {
	return Config{
		NoticePeriod:         72 * time.Hour,
		GracePeriod:          24 * time.Hour,
		NotificationsEnabled: true,
		SiteName:             "Renewals",
		SiteURL:              "http://localhost:8080",
		CheckoutURL:          "http://localhost:8080/checkout",
		AdminURL:             "http://localhost:8080/admin",
		DateFormat:           "January 2, 2006",
	}
}
