// Package asyncemail sends email through an SMTP server, either blocking until
// the server accepted the message or asynchronously with a completion callback
// that carries a caller-supplied correlation token.
//
// Key subpackages:
//
//	github.com/muratonnet/asyncemail/pkg/config     - NetworkSettings and MAIL_* environment loading
//	github.com/muratonnet/asyncemail/pkg/mail       - Email, Send, and the SMTP and log transports
//	github.com/muratonnet/asyncemail/pkg/worker     - Worker pool running asynchronous sends
//	github.com/muratonnet/asyncemail/pkg/telemetry  - zerolog and OpenTelemetry setup
//	github.com/muratonnet/asyncemail/pkg/smtptest   - In-process SMTP server for tests
//
// Example Usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/muratonnet/asyncemail/pkg/config"
//		"github.com/muratonnet/asyncemail/pkg/mail"
//	)
//
//	func main() {
//		settings := config.NewNetworkSettings("smtp.example.com", config.PortNumber(587), "user", "pw", true)
//
//		email := mail.New(settings, "a@example.com", []string{"b@example.com"}, "Hi", "Hello",
//			mail.WithAsync(),
//			mail.WithToken(12345),
//			mail.WithListener(func(_ *mail.Email, c mail.Completion) {
//				if c.Token == 12345 {
//					fmt.Printf("Email %v: %s\n", c.Token, c.Status)
//				}
//			}),
//		)
//		if err := email.Send(context.Background()); err != nil {
//			fmt.Println(err)
//		}
//		_ = mail.DefaultTransport().Close()
//	}
package asyncemail
