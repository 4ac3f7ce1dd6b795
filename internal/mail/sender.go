package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gopkg.in/gomail.v2"

	"accredian/referralhub/internal/config"
)

// Message is a single-recipient notification with a plain-text body and an
// optional HTML alternative.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// implicit TLS on this port, STARTTLS when offered elsewhere
const implicitTLSPort = 465

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type smtpSender struct {
	host     string
	port     int
	user     string
	fromName string
	tokens   oauth2.TokenSource
}

// NewSMTPSender returns a Sender that authenticates as cfg.User with access
// tokens drawn from tokens.
func NewSMTPSender(cfg config.MailConfig, tokens oauth2.TokenSource) (Sender, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.SMTPPort <= 0 {
		return nil, fmt.Errorf("smtp port must be greater than 0")
	}
	if _, err := mail.ParseAddress(cfg.User); err != nil {
		return nil, fmt.Errorf("invalid mail user: %w", err)
	}
	return &smtpSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.User,
		fromName: cfg.BrandingName,
		tokens:   tokens,
	}, nil
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	tok, err := tokenWithContext(ctx, s.tokens)
	if err != nil {
		return fmt.Errorf("obtain access token: %w", err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.user, s.fromName)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		if _, err := mail.ParseAddress(msg.ReplyTo); err == nil {
			m.SetHeader("Reply-To", msg.ReplyTo)
		}
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.deliver(ctx, tok.AccessToken, m); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send: %w", ctxErr)
		}
		return err
	}
	return nil
}

// tokenWithContext stops waiting for the token source when ctx ends. The
// exchange itself is bounded by the token source's HTTP client timeout.
func tokenWithContext(ctx context.Context, ts oauth2.TokenSource) (*oauth2.Token, error) {
	type result struct {
		tok *oauth2.Token
		err error
	}
	done := make(chan result, 1)
	go func() {
		tok, err := ts.Token()
		done <- result{tok: tok, err: err}
	}()
	select {
	case r := <-done:
		return r.tok, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deliver runs one SMTP session on a connection whose deadline follows ctx,
// so a stalled server cannot outlive the send.
func (s *smtpSender) deliver(ctx context.Context, accessToken string, m *gomail.Message) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}
	defer conn.Close()

	// ctx is already done when this fires, so callers can report ctx.Err()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if s.port == implicitTLSPort {
		conn = tls.Client(conn, &tls.Config{ServerName: s.host})
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if s.port != implicitTLSPort {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return fmt.Errorf("starttls failed: %w", err)
			}
		}
	}
	if err := client.Auth(&xoauth2Auth{username: s.user, accessToken: accessToken}); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}

	err = gomail.Send(gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		if err := client.Mail(from); err != nil {
			return err
		}
		for _, rcpt := range to {
			if err := client.Rcpt(rcpt); err != nil {
				return err
			}
		}
		w, err := client.Data()
		if err != nil {
			return err
		}
		if _, err := msg.WriteTo(w); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	}), m)
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp quit failed: %w", err)
	}
	return nil
}

type noopSender struct {
	logger *zap.Logger
}

// NewNoopSender drops every message. Used when mail.enabled is false.
func NewNoopSender(logger *zap.Logger) Sender {
	return &noopSender{logger: logger}
}

func (s *noopSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("mail disabled, message dropped", zap.String("subject", msg.Subject))
	return nil
}
