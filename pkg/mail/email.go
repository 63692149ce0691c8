package mail

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/muratonnet/asyncemail/pkg/config"
	"github.com/muratonnet/asyncemail/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/muratonnet/asyncemail/pkg/mail"

// Listener receives the completion of an asynchronous send
type Listener func(sender *Email, c Completion)

// Email is a single message together with the settings used to deliver it.
// Fields may be changed until Send is called.
type Email struct {
	// Token is passed back in the completion of an asynchronous send
	Token    any
	Settings config.NetworkSettings

	From       string
	To         []string
	Cc         []string
	Bcc        []string
	Subject    string
	Body       string
	IsBodyHTML bool
	// IsAsync makes Send return without waiting for delivery
	IsAsync bool

	// Transport creates the SMTP client. Nil uses DefaultTransport.
	Transport Transport

	mu        sync.RWMutex
	listeners []Listener
}

// Option configures an Email built with New
type Option func(*Email)

// WithToken sets the correlation token of an asynchronous send
func WithToken(token any) Option {
	return func(e *Email) {
		e.Token = token
	}
}

// WithCc adds carbon copy recipients
func WithCc(addrs ...string) Option {
	return func(e *Email) {
		e.Cc = append(e.Cc, addrs...)
	}
}

// WithBcc adds blind carbon copy recipients
func WithBcc(addrs ...string) Option {
	return func(e *Email) {
		e.Bcc = append(e.Bcc, addrs...)
	}
}

// WithHTMLBody marks the body as HTML
func WithHTMLBody() Option {
	return func(e *Email) {
		e.IsBodyHTML = true
	}
}

// WithAsync sends without blocking the caller
func WithAsync() Option {
	return func(e *Email) {
		e.IsAsync = true
	}
}

// WithTransport overrides the transport used to create SMTP clients
func WithTransport(t Transport) Option {
	return func(e *Email) {
		e.Transport = t
	}
}

// WithListener subscribes l to the send completion
func WithListener(l Listener) Option {
	return func(e *Email) {
		e.OnSendCompleted(l)
	}
}

// New builds an Email in one step. A random UUID is used as token unless
// WithToken is given.
func New(settings config.NetworkSettings, from string, to []string, subject, body string, opts ...Option) *Email {
	e := &Email{
		Token:    uuid.New(),
		Settings: settings,
		From:     from,
		To:       to,
		Subject:  subject,
		Body:     body,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnSendCompleted subscribes l to the completion of asynchronous sends
func (e *Email) OnSendCompleted(l Listener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Send validates the email and hands it to an SMTP client. Required fields
// are checked before any connection is made. In asynchronous mode Send
// returns once the message is submitted and delivery failures are only
// reported to the listeners.
func (e *Email) Send(ctx context.Context) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "mail.Send", trace.WithAttributes(
		attribute.String("smtp.host", e.Settings.Host()),
		attribute.Int("mail.recipients", len(e.To)+len(e.Cc)+len(e.Bcc)),
		attribute.Bool("mail.async", e.IsAsync),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := e.validate(); err != nil {
		return err
	}

	msg := e.message()

	client := e.newClient()
	client.SetCredentials(e.Settings.UserName(), e.Settings.Password())
	client.SetEnableSSL(e.Settings.EnableSSL())
	client.OnSendCompleted(func(_ any, c Completion) {
		e.forward(ctx, c)
	})

	logger := telemetry.LoggerFromContext(ctx).With().
		Str("host", e.Settings.Host()).
		Str("port", e.Settings.Port().String()).
		Strs("to", msg.To).
		Bool("async", e.IsAsync).
		Logger()

	if e.IsAsync {
		logger.Debug().Interface("token", e.Token).Msg("Submitting email")
		client.SendAsync(ctx, msg, e.Token)
		return nil
	}

	logger.Debug().Msg("Sending email")
	return client.Send(ctx, msg)
}

func (e *Email) validate() error {
	switch {
	case e.Settings.Host() == "":
		return &ValidationError{Field: "NetworkSettings.Host"}
	case e.Settings.UserName() == "":
		return &ValidationError{Field: "NetworkSettings.UserName"}
	case e.Settings.Password() == "":
		return &ValidationError{Field: "NetworkSettings.Password"}
	case e.From == "":
		return &ValidationError{Field: "From"}
	case len(e.To) == 0:
		return &ValidationError{Field: "To"}
	case e.Subject == "":
		return &ValidationError{Field: "Subject"}
	case e.Body == "":
		return &ValidationError{Field: "Body"}
	}
	return nil
}

func (e *Email) message() *Message {
	msg := &Message{
		From:       e.From,
		To:         append([]string(nil), e.To...),
		Subject:    e.Subject,
		Body:       e.Body,
		IsBodyHTML: e.IsBodyHTML,
	}
	if len(e.Cc) > 0 {
		msg.Cc = append([]string(nil), e.Cc...)
	}
	if len(e.Bcc) > 0 {
		msg.Bcc = append([]string(nil), e.Bcc...)
	}
	return msg
}

func (e *Email) newClient() Client {
	t := e.Transport
	if t == nil {
		t = DefaultTransport()
	}
	if port, ok := e.Settings.Port().Get(); ok {
		return t.NewClientWithPort(e.Settings.Host(), port)
	}
	return t.NewClient(e.Settings.Host())
}

func (e *Email) forward(ctx context.Context, c Completion) {
	e.mu.RLock()
	listeners := append([]Listener(nil), e.listeners...)
	e.mu.RUnlock()

	if len(listeners) == 0 {
		if c.Status != StatusSent {
			telemetry.LoggerFromContext(ctx).Error().
				Err(c.Err).
				Interface("token", c.Token).
				Str("status", c.Status.String()).
				Msg("Asynchronous email delivery failed with no listener registered")
		}
		return
	}

	for _, l := range listeners {
		l(e, c)
	}
}
