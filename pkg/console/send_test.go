package console

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/muratonnet/asyncemail/pkg/mail"
	"github.com/muratonnet/asyncemail/pkg/smtptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMailEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range []string{
		"MAIL_MAILER", "MAIL_HOST", "MAIL_PORT", "MAIL_USERNAME", "MAIL_PASSWORD",
		"MAIL_ENCRYPTION", "MAIL_FROM_ADDRESS", "MAIL_FROM_NAME", "MAIL_ASYNC_WORKERS",
	} {
		t.Setenv(key, env[key])
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newSendCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	envFile := filepath.Join(t.TempDir(), "missing.env")
	cmd.SetArgs(append([]string{"--env-file", envFile}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSend_LogMailer(t *testing.T) {
	setMailEnv(t, map[string]string{
		"MAIL_MAILER":       "log",
		"MAIL_HOST":         "smtp.example.com",
		"MAIL_USERNAME":     "user",
		"MAIL_PASSWORD":     "pw",
		"MAIL_FROM_ADDRESS": "sender@example.com",
	})

	out, err := execute(t, "--to", "b@example.com", "--subject", "Hi", "--body", "Hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Email has been sent!")
}

func TestSend_AsyncLogMailer(t *testing.T) {
	setMailEnv(t, map[string]string{
		"MAIL_MAILER":       "log",
		"MAIL_HOST":         "smtp.example.com",
		"MAIL_USERNAME":     "user",
		"MAIL_PASSWORD":     "pw",
		"MAIL_FROM_ADDRESS": "sender@example.com",
	})

	out, err := execute(t, "--to", "b@example.com", "--subject", "Hi", "--body", "Hello", "--async", "--token", "12345")
	require.NoError(t, err)
	assert.Contains(t, out, "Sending email...")
	assert.Contains(t, out, "Email 12345 has been sent!")
}

func TestSend_ValidationError(t *testing.T) {
	setMailEnv(t, map[string]string{
		"MAIL_MAILER":       "log",
		"MAIL_HOST":         "smtp.example.com",
		"MAIL_USERNAME":     "user",
		"MAIL_PASSWORD":     "pw",
		"MAIL_FROM_ADDRESS": "sender@example.com",
	})

	_, err := execute(t, "--to", "b@example.com", "--body", "Hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, mail.ErrValidation)
	assert.Contains(t, err.Error(), "Subject")
}

func TestSend_UnsupportedMailer(t *testing.T) {
	setMailEnv(t, map[string]string{"MAIL_MAILER": "carrier-pigeon"})

	_, err := execute(t, "--to", "b@example.com", "--subject", "Hi", "--body", "Hello")
	assert.EqualError(t, err, "unsupported mailer: carrier-pigeon")
}

func TestSend_SMTP(t *testing.T) {
	srv, err := smtptest.Start()
	require.NoError(t, err)
	defer srv.Close()

	setMailEnv(t, map[string]string{
		"MAIL_MAILER":       "smtp",
		"MAIL_HOST":         srv.Host(),
		"MAIL_PORT":         strconv.Itoa(srv.Port()),
		"MAIL_USERNAME":     "myuser",
		"MAIL_PASSWORD":     "mypassword",
		"MAIL_FROM_ADDRESS": "sender@example.com",
		"MAIL_FROM_NAME":    "Sender",
	})

	out, err := execute(t,
		"--to", "b@example.com,c@example.com",
		"--bcc", "hidden@example.com",
		"--subject", "Hi",
		"--body", "<b>Hello</b>",
		"--html",
		"--async",
		"--token", "job-7",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Email job-7 has been sent!")

	envs := srv.Envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, "sender@example.com", envs[0].From)
	assert.Equal(t, []string{"b@example.com", "c@example.com", "hidden@example.com"}, envs[0].To)
	assert.Contains(t, smtptest.Header(envs[0].Data, "From"), "sender@example.com")
}

func TestSend_SMTPFailure(t *testing.T) {
	srv, err := smtptest.Start(smtptest.WithCredentials("myuser", "right"))
	require.NoError(t, err)
	defer srv.Close()

	setMailEnv(t, map[string]string{
		"MAIL_HOST":         srv.Host(),
		"MAIL_PORT":         strconv.Itoa(srv.Port()),
		"MAIL_USERNAME":     "myuser",
		"MAIL_PASSWORD":     "wrong",
		"MAIL_FROM_ADDRESS": "sender@example.com",
	})

	_, err = execute(t, "--to", "b@example.com", "--subject", "Hi", "--body", "Hello", "--async", "--token", "job-8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job-8 failed")
}
