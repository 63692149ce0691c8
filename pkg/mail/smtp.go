package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"

	"github.com/muratonnet/asyncemail/pkg/config"
	"github.com/muratonnet/asyncemail/pkg/telemetry"
	"github.com/muratonnet/asyncemail/pkg/worker"
	gomail "gopkg.in/mail.v2"
)

const (
	// DefaultSMTPPort is used when the settings carry no port
	DefaultSMTPPort = 25
	implicitTLSPort = 465
)

var (
	defaultTransport     Transport
	defaultTransportOnce sync.Once
)

// DefaultTransport returns the shared SMTP transport used by emails that
// have no Transport of their own.
func DefaultTransport() Transport {
	defaultTransportOnce.Do(func() {
		defaultTransport = NewSMTPTransport(config.MailConfig{})
	})
	return defaultTransport
}

// SMTPTransport creates clients backed by gopkg.in/mail.v2. Asynchronous
// sends run on the transport's own worker pool.
type SMTPTransport struct {
	DefaultPort int
	// TLSConfig is used for STARTTLS and implicit TLS. Nil verifies against
	// the host name.
	TLSConfig *tls.Config
	LocalName string

	pool *worker.Pool
}

// NewSMTPTransport creates a new SMTPTransport
func NewSMTPTransport(cfg config.MailConfig) *SMTPTransport {
	workers := cfg.AsyncWorkers
	if workers < 1 {
		workers = config.DefaultAsyncWorkers
	}
	return &SMTPTransport{
		DefaultPort: DefaultSMTPPort,
		pool:        worker.NewPool(workers),
	}
}

// NewClient returns a client for host on the default port
func (t *SMTPTransport) NewClient(host string) Client {
	return t.NewClientWithPort(host, t.DefaultPort)
}

// NewClientWithPort returns a client for host and port
func (t *SMTPTransport) NewClientWithPort(host string, port int) Client {
	d := gomail.NewDialer(host, port, "", "")
	d.TLSConfig = t.TLSConfig
	if t.LocalName != "" {
		d.LocalName = t.LocalName
	}

	c := &SMTPClient{dialer: d, pool: t.pool}
	c.SetEnableSSL(false)
	return c
}

// Close waits for pending asynchronous sends
func (t *SMTPTransport) Close() error {
	t.pool.Close()
	return nil
}

// SMTPClient sends messages through a single SMTP endpoint
type SMTPClient struct {
	dialer *gomail.Dialer
	pool   *worker.Pool

	mu       sync.RWMutex
	handlers []CompletionHandler
}

// SetCredentials sets the user name and password used to authenticate
func (c *SMTPClient) SetCredentials(userName string, password config.Secret) {
	c.dialer.Username = userName
	c.dialer.Password = password.Reveal()
}

// SetEnableSSL requires an encrypted connection: implicit TLS on port 465,
// STARTTLS otherwise. Without it STARTTLS is used when the server offers it.
func (c *SMTPClient) SetEnableSSL(enabled bool) {
	switch {
	case enabled && c.dialer.Port == implicitTLSPort:
		c.dialer.SSL = true
		c.dialer.StartTLSPolicy = gomail.OpportunisticStartTLS
	case enabled:
		c.dialer.SSL = false
		c.dialer.StartTLSPolicy = gomail.MandatoryStartTLS
	default:
		c.dialer.SSL = false
		c.dialer.StartTLSPolicy = gomail.OpportunisticStartTLS
	}
}

// OnSendCompleted registers a completion handler
func (c *SMTPClient) OnSendCompleted(h CompletionHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Send dials the server and delivers msg. Errors from the SMTP exchange are
// returned unchanged.
func (c *SMTPClient) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.dialer.DialAndSend(buildMessage(msg))
}

// SendAsync queues msg on the transport's worker pool and returns without
// waiting for a free worker. Cancelling ctx after submission does not abort
// the delivery.
func (c *SMTPClient) SendAsync(ctx context.Context, msg *Message, token any) {
	ctx = context.WithoutCancel(ctx)
	m := buildMessage(msg)

	err := c.pool.Submit(ctx, func(ctx context.Context) {
		c.complete(ctx, token, c.dialer.DialAndSend(m))
	})
	if err != nil {
		c.complete(ctx, token, err)
	}
}

func (c *SMTPClient) complete(ctx context.Context, token any, err error) {
	completion := Completion{Token: token, Status: StatusSent, Err: err}
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		completion.Status = StatusCanceled
	default:
		completion.Status = StatusFailed
	}

	telemetry.LoggerFromContext(ctx).Debug().
		Str("host", c.dialer.Host).
		Int("port", c.dialer.Port).
		Str("status", completion.Status.String()).
		Err(err).
		Msg("Asynchronous send completed")

	c.mu.RLock()
	handlers := append([]CompletionHandler(nil), c.handlers...)
	c.mu.RUnlock()

	for _, h := range handlers {
		h(c, completion)
	}
}

func buildMessage(msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody(msg.ContentType(), msg.Body)
	return m
}
