package smtptest

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/docker/go-units"
	"github.com/emersion/go-smtp"
)

// Envelope is a message accepted by the server
type Envelope struct {
	UserName string
	From     string
	To       []string
	Data     string
}

// Backend implements smtp.Backend. Any non-empty username/password pair
// is accepted unless the store was given fixed credentials.
type Backend struct {
	store    *Store
	userName string
	password string
}

// Login implements smtp.Backend
func (be *Backend) Login(_ *smtp.ConnectionState, username string, password string) (smtp.Session, error) {
	if username == "" || password == "" {
		return nil, errors.New("no username or password provided")
	}
	if be.userName != "" && (username != be.userName || password != be.password) {
		return nil, errors.New("invalid credentials")
	}
	return &session{store: be.store, userName: username}, nil
}

// AnonymousLogin implements smtp.Backend. Not supported since we want to
// enforce AUTH.
func (be *Backend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return nil, smtp.ErrAuthUnsupported
}

// session collects one envelope at a time. Implements smtp.Session.
type session struct {
	store    *Store
	userName string
	from     string
	to       []string
}

func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *session) Logout() error { return nil }

func (s *session) Mail(from string, _ smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(to string) error {
	s.to = append(s.to, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	// doubtful we'll get an email this big, but we need a limit
	var maxEmailSize int64 = 10 * units.MiB
	buf, err := io.ReadAll(io.LimitReader(r, maxEmailSize))
	if err != nil {
		return err
	}

	s.store.save(Envelope{
		UserName: s.userName,
		From:     s.from,
		To:       append([]string(nil), s.to...),
		Data:     string(buf),
	})
	return nil
}

// Store retains accepted envelopes in memory. Goroutine safe.
type Store struct {
	mu        sync.Mutex
	envelopes []Envelope
	received  chan struct{}
}

func (st *Store) save(e Envelope) {
	st.mu.Lock()
	st.envelopes = append(st.envelopes, e)
	st.mu.Unlock()

	select {
	case st.received <- struct{}{}:
	default:
	}
}

// Envelopes returns a copy of every accepted envelope
func (st *Store) Envelopes() []Envelope {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]Envelope(nil), st.envelopes...)
}

// Received signals after each accepted envelope. Signals are dropped
// once sixteen are pending.
func (st *Store) Received() <-chan struct{} {
	return st.received
}

// Option configures a Server
type Option func(*Server)

// WithCredentials only accepts the given username and password
func WithCredentials(userName, password string) Option {
	return func(s *Server) {
		s.backend.userName = userName
		s.backend.password = password
	}
}

// WithTLS enables STARTTLS with the given certificate
func WithTLS(cert tls.Certificate) Option {
	return func(s *Server) {
		s.Server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
		}
	}
}

// Server is an SMTP server that runs in the same process as the test
// suite, letting us inspect sent emails. Create it with Start.
type Server struct {
	*smtp.Server
	*Store

	backend  *Backend
	listener net.Listener
	done     chan struct{}
}

// Start listens on a random loopback port and serves in the background
func Start(opts ...Option) (*Server, error) {
	st := &Store{received: make(chan struct{}, 16)}
	be := &Backend{store: st}

	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	// The client only offers PLAIN auth on loopback without TLS
	srv.AllowInsecureAuth = true
	srv.AuthDisabled = false

	s := &Server{
		Server:  srv,
		Store:   st,
		backend: be,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s.listener = l
	s.Server.Addr = l.Addr().String()

	go func() {
		defer close(s.done)
		_ = s.Server.Serve(l)
	}()

	return s, nil
}

// Host returns the loopback address the server listens on
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

// Port returns the port the server listens on
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close shuts down the server and waits for the serve loop to exit
func (s *Server) Close() {
	_ = s.Server.Close()
	// Serve may not have registered the listener yet
	_ = s.listener.Close()
	<-s.done
}

// Header returns the value of a header in raw message data
func Header(data, name string) string {
	head, _, _ := strings.Cut(data, "\r\n\r\n")
	prefix := strings.ToLower(name) + ":"
	for _, line := range strings.Split(head, "\r\n") {
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}
