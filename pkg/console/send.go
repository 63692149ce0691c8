package console

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/muratonnet/asyncemail/pkg/config"
	"github.com/muratonnet/asyncemail/pkg/mail"
	"github.com/muratonnet/asyncemail/pkg/root"
	"github.com/muratonnet/asyncemail/pkg/telemetry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	envFile string
	from    string
	to      []string
	cc      []string
	bcc     []string
	subject string
	body    string
	html    bool
	async   bool
	token   string
	timeout time.Duration
	verbose bool
	trace   bool
}

func newSendCmd() *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email using the MAIL_* settings from the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "Optional .env file with MAIL_* settings")
	cmd.Flags().StringVar(&opts.from, "from", "", "Sender address (defaults to MAIL_FROM_ADDRESS)")
	cmd.Flags().StringSliceVar(&opts.to, "to", nil, "Recipient addresses")
	cmd.Flags().StringSliceVar(&opts.cc, "cc", nil, "Carbon copy addresses")
	cmd.Flags().StringSliceVar(&opts.bcc, "bcc", nil, "Blind carbon copy addresses")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Subject of the email")
	cmd.Flags().StringVar(&opts.body, "body", "", "Body of the email")
	cmd.Flags().BoolVar(&opts.html, "html", false, "Send the body as HTML")
	cmd.Flags().BoolVar(&opts.async, "async", false, "Submit the email without blocking and wait for its completion")
	cmd.Flags().StringVar(&opts.token, "token", "", "Correlation token of an asynchronous send (random when empty)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "How long to wait for an asynchronous completion")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print OpenTelemetry spans to stderr")

	return cmd
}

func runSend(cmd *cobra.Command, opts *sendOptions) error {
	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	telemetry.SetGlobalLogger(level)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = log.Logger.WithContext(ctx)

	if opts.trace {
		tp, err := telemetry.InitTracer("asyncemail", os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("Error shutting down tracer")
			}
		}()
	}

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	transport, err := mail.NewTransport(*cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := transport.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing transport")
		}
	}()

	from := opts.from
	if from == "" {
		from = cfg.From()
	}

	mailOpts := []mail.Option{
		mail.WithTransport(transport),
		mail.WithCc(opts.cc...),
		mail.WithBcc(opts.bcc...),
	}
	if opts.html {
		mailOpts = append(mailOpts, mail.WithHTMLBody())
	}

	email := mail.New(cfg.NetworkSettings(), from, opts.to, opts.subject, opts.body, mailOpts...)
	out := cmd.OutOrStdout()

	if !opts.async {
		if err := email.Send(ctx); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		fmt.Fprintln(out, "Email has been sent!")
		return nil
	}

	token := opts.token
	if token == "" {
		token = uuid.NewString()
	}
	email.IsAsync = true
	email.Token = token

	done := make(chan mail.Completion, 1)
	email.OnSendCompleted(func(_ *mail.Email, c mail.Completion) {
		if c.Token != token {
			return
		}
		done <- c
	})

	if err := email.Send(ctx); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	fmt.Fprintln(out, "Sending email...")

	select {
	case c := <-done:
		if c.Status != mail.StatusSent {
			return fmt.Errorf("email %s %s: %v", token, c.Status, c.Err)
		}
		fmt.Fprintf(out, "Email %s has been sent!\n", token)
		return nil
	case <-time.After(opts.timeout):
		return fmt.Errorf("timed out after %s waiting for email %s", opts.timeout, token)
	}
}

func init() {
	root.GetRoot().AddCommand(newSendCmd())
}
