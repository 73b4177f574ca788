package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/caasmo/notesapi/config"
	"github.com/domodwyer/mailyak/v3"
)

const verificationSubject = "Verify Your Email"

var verificationTmpl = template.Must(template.New("verify").Parse(`<p>Please click the link below to verify your email:</p>
<a href="{{.Link}}">{{.Link}}</a>
<p>This link will expire in 1 hour.</p>
`))

// Mailer handles sending emails. Settings are read from the provider on every
// send so a reloaded configuration takes effect without a restart.
type Mailer struct {
	provider *config.Provider
	logger   *slog.Logger
}

// New creates a new Mailer instance
func New(provider *config.Provider, logger *slog.Logger) (*Mailer, error) {
	if provider == nil {
		return nil, fmt.Errorf("mail: nil config provider")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{provider: provider, logger: logger.With("component", "mail")}, nil
}

// SendVerificationEmail sends the email verification message with link.
// When smtp is disabled the link is logged instead, which keeps local
// development usable without a mail server.
func (m *Mailer) SendVerificationEmail(ctx context.Context, email, link string) error {
	cfg := m.provider.Get()
	if !cfg.Smtp.Enabled {
		m.logger.Info("smtp disabled, verification link not sent", "email", email, "link", link)
		return nil
	}

	var body bytes.Buffer
	err := verificationTmpl.Execute(&body, struct{ Link string }{link})
	if err != nil {
		return fmt.Errorf("mail: render verification email: %w", err)
	}

	if err := m.send(ctx, &cfg.Smtp, email, verificationSubject, body.String()); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	m.logger.Info("Successfully sent verification email", "email", email)
	return nil
}

func (m *Mailer) send(ctx context.Context, s *config.Smtp, to, subject, html string) error {
	mail, err := newMail(s)
	if err != nil {
		return err
	}

	mail.To(to)
	mail.From(s.FromAddress)
	mail.FromName(s.FromName)
	mail.Subject(subject)
	mail.HTML().Set(html)
	if s.LocalName != "" {
		mail.LocalName(s.LocalName)
	}

	// mailyak has no context support.
	done := make(chan error, 1)
	go func() {
		done <- mail.Send()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func newMail(s *config.Smtp) (*mailyak.MailYak, error) {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	if s.UseTLS {
		mail, err := mailyak.NewWithTLS(addr, auth, &tls.Config{ServerName: s.Host})
		if err != nil {
			return nil, fmt.Errorf("mail: tls client: %w", err)
		}
		return mail, nil
	}
	return mailyak.New(addr, auth), nil
}
