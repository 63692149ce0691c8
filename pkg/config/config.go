package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Secret is a string that never prints its value
type Secret string

// String implements fmt.Stringer without exposing the value
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Reveal returns the underlying value
func (s Secret) Reveal() string {
	return string(s)
}

// Port is an optional SMTP port. The zero value means "not set".
type Port struct {
	number int
	set    bool
}

// NoPort leaves the port to the transport default
var NoPort = Port{}

// PortNumber returns a Port set to n
func PortNumber(n int) Port {
	return Port{number: n, set: true}
}

// Get returns the port number and whether one was set
func (p Port) Get() (int, bool) {
	return p.number, p.set
}

func (p Port) String() string {
	if !p.set {
		return "default"
	}
	return strconv.Itoa(p.number)
}

// NetworkSettings holds the SMTP endpoint and credentials.
// Values are immutable once built with NewNetworkSettings.
type NetworkSettings struct {
	host      string
	port      Port
	userName  string
	password  Secret
	enableSSL bool
}

// NewNetworkSettings builds the settings value. Nothing is validated here;
// the email validates required fields at send time.
func NewNetworkSettings(host string, port Port, userName string, password Secret, enableSSL bool) NetworkSettings {
	return NetworkSettings{
		host:      host,
		port:      port,
		userName:  userName,
		password:  password,
		enableSSL: enableSSL,
	}
}

// Host is the name or IP address of the SMTP server
func (s NetworkSettings) Host() string { return s.host }

// Port is the optional SMTP port
func (s NetworkSettings) Port() Port { return s.port }

// UserName is the user name used to authenticate
func (s NetworkSettings) UserName() string { return s.userName }

// Password is the password used to authenticate
func (s NetworkSettings) Password() Secret { return s.password }

// EnableSSL reports whether the connection is encrypted with SSL/TLS
func (s NetworkSettings) EnableSSL() bool { return s.enableSSL }

func (s NetworkSettings) String() string {
	return fmt.Sprintf("%s:%s (user=%s, ssl=%t)", s.host, s.port, s.userName, s.enableSSL)
}

// DefaultAsyncWorkers is the number of concurrent asynchronous sends when
// MAIL_ASYNC_WORKERS is not set
const DefaultAsyncWorkers = 4

// MailConfig holds mail configuration read from the environment
type MailConfig struct {
	Mailer       string `env:"MAIL_MAILER" envDefault:"smtp"` // smtp, log
	Host         string `env:"MAIL_HOST"`
	Port         int    `env:"MAIL_PORT"` // 0 uses the transport default
	Username     string `env:"MAIL_USERNAME"`
	Password     Secret `env:"MAIL_PASSWORD"`
	Encryption   string `env:"MAIL_ENCRYPTION"` // ssl, tls or empty
	FromAddress  string `env:"MAIL_FROM_ADDRESS"`
	FromName     string `env:"MAIL_FROM_NAME"`
	AsyncWorkers int    `env:"MAIL_ASYNC_WORKERS" envDefault:"4"`
}

// NetworkSettings converts the environment configuration into settings
func (c MailConfig) NetworkSettings() NetworkSettings {
	port := NoPort
	if c.Port != 0 {
		port = PortNumber(c.Port)
	}

	var ssl bool
	switch strings.ToLower(c.Encryption) {
	case "ssl", "tls":
		ssl = true
	}

	return NewNetworkSettings(c.Host, port, c.Username, c.Password, ssl)
}

// From returns the configured sender, "Name <address>" when a name is set
func (c MailConfig) From() string {
	if c.FromAddress == "" {
		return ""
	}
	if c.FromName != "" {
		return fmt.Sprintf("%s <%s>", c.FromName, c.FromAddress)
	}
	return c.FromAddress
}
