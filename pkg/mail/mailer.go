package mail

import (
	"context"

	"github.com/muratonnet/asyncemail/pkg/config"
)

// Message is the transport-level representation of an email
type Message struct {
	From       string
	To         []string
	Cc         []string
	Bcc        []string
	Subject    string
	Body       string
	IsBodyHTML bool
}

// ContentType returns the MIME type of the body
func (m *Message) ContentType() string {
	if m.IsBodyHTML {
		return "text/html"
	}
	return "text/plain"
}

// Status is the outcome of an asynchronous send
type Status int

const (
	StatusSent Status = iota
	StatusFailed
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Completion reports the result of an asynchronous send together with the
// token supplied when it was submitted.
type Completion struct {
	Token  any
	Status Status
	Err    error
}

// CompletionHandler receives completions raised by a Client
type CompletionHandler func(sender any, c Completion)

// Client delivers messages to an SMTP server
type Client interface {
	// SetCredentials sets the user name and password used to authenticate
	SetCredentials(userName string, password config.Secret)
	// SetEnableSSL toggles the encrypted connection
	SetEnableSSL(enabled bool)
	// OnSendCompleted registers a handler invoked once per SendAsync call
	OnSendCompleted(h CompletionHandler)
	// Send blocks until the server accepted the message or an error occurred
	Send(ctx context.Context, msg *Message) error
	// SendAsync submits the message and returns immediately. The outcome is
	// reported to the completion handlers carrying token.
	SendAsync(ctx context.Context, msg *Message, token any)
}

// Transport creates clients bound to an SMTP host
type Transport interface {
	// NewClient returns a client using the transport's default port
	NewClient(host string) Client
	// NewClientWithPort returns a client bound to host and port
	NewClientWithPort(host string, port int) Client
	// Close waits for pending asynchronous sends and releases resources
	Close() error
}
