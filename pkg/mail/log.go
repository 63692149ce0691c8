package mail

import (
	"context"
	"sync"

	"github.com/muratonnet/asyncemail/pkg/config"
	"github.com/muratonnet/asyncemail/pkg/telemetry"
)

// LogTransport creates clients that log messages instead of sending them
type LogTransport struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewLogTransport creates a new LogTransport
func NewLogTransport() *LogTransport {
	return &LogTransport{}
}

// NewClient returns a logging client
func (t *LogTransport) NewClient(host string) Client {
	return &LogClient{Host: host, transport: t}
}

// NewClientWithPort returns a logging client
func (t *LogTransport) NewClientWithPort(host string, port int) Client {
	return &LogClient{Host: host, Port: port, transport: t}
}

// Close waits for pending asynchronous sends
func (t *LogTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
	return nil
}

// start registers an asynchronous send unless the transport is closed
func (t *LogTransport) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	return true
}

// LogClient implements Client by logging message details
type LogClient struct {
	Host     string
	Port     int
	UserName string
	SSL      bool

	transport *LogTransport
	mu        sync.Mutex
	handlers  []CompletionHandler
}

// SetCredentials records the user name; the password is never logged
func (c *LogClient) SetCredentials(userName string, _ config.Secret) {
	c.UserName = userName
}

// SetEnableSSL records the flag
func (c *LogClient) SetEnableSSL(enabled bool) {
	c.SSL = enabled
}

// OnSendCompleted registers a completion handler
func (c *LogClient) OnSendCompleted(h CompletionHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Send logs the message details
func (c *LogClient) Send(ctx context.Context, msg *Message) error {
	logger := telemetry.LoggerFromContext(ctx).With().
		Str("mailer", "log").
		Str("host", c.Host).
		Str("from", msg.From).
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Str("content_type", msg.ContentType()).
		Logger()

	if len(msg.Cc) > 0 {
		logger = logger.With().Strs("cc", msg.Cc).Logger()
	}
	if len(msg.Bcc) > 0 {
		logger = logger.With().Strs("bcc", msg.Bcc).Logger()
	}

	logger.Info().Msg("Sending email")

	// The log mailer exists to see the email, so print the body as well
	logger.Info().Msgf("Body:\n%s", msg.Body)

	return nil
}

// SendAsync logs the message on a separate goroutine and reports completion.
// After Close the completion fails with ErrTransportClosed.
func (c *LogClient) SendAsync(ctx context.Context, msg *Message, token any) {
	ctx = context.WithoutCancel(ctx)
	if !c.transport.start() {
		c.complete(Completion{Token: token, Status: StatusFailed, Err: ErrTransportClosed})
		return
	}

	go func() {
		defer c.transport.wg.Done()
		err := c.Send(ctx, msg)

		completion := Completion{Token: token, Status: StatusSent, Err: err}
		if err != nil {
			completion.Status = StatusFailed
		}
		c.complete(completion)
	}()
}

func (c *LogClient) complete(completion Completion) {
	c.mu.Lock()
	handlers := append([]CompletionHandler(nil), c.handlers...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(c, completion)
	}
}
