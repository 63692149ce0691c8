package mail

import (
	"fmt"

	"github.com/muratonnet/asyncemail/pkg/config"
)

// NewTransport creates a new Transport based on the configuration
func NewTransport(cfg config.MailConfig) (Transport, error) {
	switch cfg.Mailer {
	case "smtp", "":
		return NewSMTPTransport(cfg), nil
	case "log":
		return NewLogTransport(), nil
	default:
		return nil, fmt.Errorf("unsupported mailer: %s", cfg.Mailer)
	}
}
