package mail

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"accredian/referralhub/internal/config"
	"accredian/referralhub/internal/repository"
)

// smtpSession records what the fake server saw during one connection.
type smtpSession struct {
	mu   sync.Mutex
	auth string
	from string
	rcpt []string
	data string
}

func (s *smtpSession) snapshot() smtpSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return smtpSession{auth: s.auth, from: s.from, rcpt: append([]string(nil), s.rcpt...), data: s.data}
}

// startTestSMTPServer accepts a single connection, speaks just enough SMTP
// for gomail (EHLO, AUTH, MAIL, RCPT, DATA, QUIT) and records the session.
// When rejectAuth is set AUTH fails with 535.
func startTestSMTPServer(t *testing.T, rejectAuth bool) (host string, port int, session *smtpSession, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	session = &smtpSession{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		fmt.Fprintf(conn, "220 localhost Test SMTP Service Ready\r\n")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				fmt.Fprintf(conn, "250-localhost Hello\r\n250 AUTH XOAUTH2\r\n")
			case strings.HasPrefix(line, "AUTH"):
				session.mu.Lock()
				session.auth = line
				session.mu.Unlock()
				if rejectAuth {
					fmt.Fprintf(conn, "535 5.7.8 Username and Password not accepted\r\n")
					continue
				}
				fmt.Fprintf(conn, "235 2.7.0 Accepted\r\n")
			case strings.HasPrefix(line, "MAIL FROM:"):
				session.mu.Lock()
				session.from = line
				session.mu.Unlock()
				fmt.Fprintf(conn, "250 OK\r\n")
			case strings.HasPrefix(line, "RCPT TO:"):
				session.mu.Lock()
				session.rcpt = append(session.rcpt, line)
				session.mu.Unlock()
				fmt.Fprintf(conn, "250 OK\r\n")
			case strings.HasPrefix(line, "DATA"):
				fmt.Fprintf(conn, "354 End data with <CR><LF>.<CR><LF>\r\n")
				var b strings.Builder
				for {
					dline, derr := r.ReadString('\n')
					if derr != nil || strings.TrimSpace(dline) == "." {
						break
					}
					b.WriteString(dline)
				}
				session.mu.Lock()
				session.data = b.String()
				session.mu.Unlock()
				fmt.Fprintf(conn, "250 OK: queued as 12345\r\n")
			case strings.HasPrefix(line, "QUIT"):
				fmt.Fprintf(conn, "221 Bye\r\n")
				return
			default:
				fmt.Fprintf(conn, "250 OK\r\n")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	stop = func() {
		ln.Close()
		wg.Wait()
	}
	return "127.0.0.1", addr.Port, session, stop
}

func staticTokens(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, Expiry: time.Now().Add(time.Hour)})
}

func mailConfig(host string, port int) config.MailConfig {
	return config.MailConfig{
		Enabled:      true,
		SMTPHost:     host,
		SMTPPort:     port,
		User:         "sender@example.com",
		BrandingName: "accredian.",
	}
}

func TestNewSMTPSender_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.MailConfig)
	}{
		{name: "missing host", mutate: func(c *config.MailConfig) { c.SMTPHost = "" }},
		{name: "bad port", mutate: func(c *config.MailConfig) { c.SMTPPort = 0 }},
		{name: "bad user", mutate: func(c *config.MailConfig) { c.User = "not-an-address" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := mailConfig("smtp.example.com", 587)
			tt.mutate(&cfg)
			_, err := NewSMTPSender(cfg, staticTokens("t"))
			assert.Error(t, err)
		})
	}

	sender, err := NewSMTPSender(mailConfig("smtp.example.com", 587), staticTokens("t"))
	require.NoError(t, err)
	assert.Implements(t, (*Sender)(nil), sender)
}

func TestSMTPSender_Send_HappyPath(t *testing.T) {
	host, port, session, stop := startTestSMTPServer(t, false)
	defer stop()

	sender, err := NewSMTPSender(mailConfig(host, port), staticTokens("access-abc"))
	require.NoError(t, err)

	msg, err := NewReferralMessage("b@x.com", "a@x.com", ReferralMailParams{
		RefereeName:  "B",
		ReferrerName: "A",
		CourseName:   "Course C",
		BrandingName: "accredian",
	})
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), msg))
	stop()

	got := session.snapshot()
	require.True(t, strings.HasPrefix(got.auth, "AUTH XOAUTH2 "), got.auth)
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got.auth, "AUTH XOAUTH2 "))
	require.NoError(t, err)
	assert.Equal(t, "user=sender@example.com\x01auth=Bearer access-abc\x01\x01", string(raw))

	assert.Contains(t, got.from, "sender@example.com")
	require.Len(t, got.rcpt, 1)
	assert.Contains(t, got.rcpt[0], "b@x.com")
	assert.Contains(t, got.data, "Reply-To: a@x.com")
	assert.Contains(t, got.data, "Subject: Highly Recommended Course for You!")
	assert.Contains(t, got.data, "multipart/alternative")
	assert.Contains(t, got.data, "Course C")
}

func TestSMTPSender_Send_AuthRejected(t *testing.T) {
	host, port, _, stop := startTestSMTPServer(t, true)
	defer stop()

	sender, err := NewSMTPSender(mailConfig(host, port), staticTokens("expired"))
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: "b@x.com", Subject: "s", Text: "t"})
	assert.Error(t, err)
}

func TestSMTPSender_Send_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sender, err := NewSMTPSender(mailConfig("127.0.0.1", port), staticTokens("t"))
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: "b@x.com", Subject: "s", Text: "t"})
	assert.Error(t, err)
}

func TestSMTPSender_Send_TokenFailure(t *testing.T) {
	sender, err := NewSMTPSender(mailConfig("127.0.0.1", 2525), oauth2.ReuseTokenSource(nil, failingTokens{}))
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: "b@x.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtain access token")
}

func TestSMTPSender_Send_InvalidRecipient(t *testing.T) {
	sender, err := NewSMTPSender(mailConfig("127.0.0.1", 2525), staticTokens("t"))
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: "nobody", Subject: "s", Text: "t"})
	assert.Error(t, err)
}

func TestSMTPSender_Send_CanceledContext(t *testing.T) {
	sender, err := NewSMTPSender(mailConfig("127.0.0.1", 2525), staticTokens("t"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sender.Send(ctx, Message{To: "b@x.com", Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSMTPSender_Send_TokenExchangeBoundedByContext(t *testing.T) {
	srv := startHangingTokenServer(t)
	cfg := oauthConfig(srv.URL)
	cfg.Timeout = 5 * time.Second

	tokens := NewTokenSource(context.Background(), cfg, repository.NewMemoryStateStore(), zap.NewNop())
	sender, err := NewSMTPSender(mailConfig("127.0.0.1", 2525), tokens)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = sender.Send(ctx, Message{To: "b@x.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSMTPSender_Send_StalledServerBoundedByContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// accepts and never greets
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	sender, err := NewSMTPSender(mailConfig("127.0.0.1", port), staticTokens("t"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = sender.Send(ctx, Message{To: "b@x.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

type failingTokens struct{}

func (failingTokens) Token() (*oauth2.Token, error) {
	return nil, fmt.Errorf("invalid_grant")
}

func TestNoopSender(t *testing.T) {
	assert.NoError(t, NewNoopSender(zap.NewNop()).Send(context.Background(), Message{Subject: "s"}))
}
