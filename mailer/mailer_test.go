package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"

	goCreds "github.com/MrEthical07/goCreds"
)

type captureSender struct {
	msgs  []*gomail.Message
	err   error
	block chan struct{}
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	if c.block != nil {
		<-c.block
	}
	c.msgs = append(c.msgs, m...)
	return c.err
}

func testMailer(t *testing.T, s sender) *Mailer {
	t.Helper()
	m, err := newMailer(Config{
		Host:     "smtp.example.com",
		Port:     587,
		From:     "no-reply@example.com",
		Product:  "Acme",
		ResetURL: "https://app.example.com/reset",
	}, s)
	if err != nil {
		t.Fatalf("newMailer: %v", err)
	}
	return m
}

func encoded(t *testing.T, msg *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.String()
}

func TestSendRendersTemplate(t *testing.T) {
	s := &captureSender{}
	m := testMailer(t, s)

	err := m.Send(context.Background(), goCreds.TemplateForgotPassword, "alice@example.com", map[string]string{
		goCreds.TemplateVarToken: "tok123abc",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(s.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(s.msgs))
	}

	msg := s.msgs[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "alice@example.com" {
		t.Fatalf("unexpected To: %v", got)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Reset your Acme password" {
		t.Fatalf("unexpected Subject: %v", got)
	}

	body := encoded(t, msg)
	if !strings.Contains(body, "Code: tok123abc") {
		t.Fatalf("plain body missing token:\n%s", body)
	}
	if !strings.Contains(body, "<strong>tok123abc</strong>") {
		t.Fatalf("html body missing token:\n%s", body)
	}
}

func TestSendRejectsUnknownTemplate(t *testing.T) {
	s := &captureSender{}
	m := testMailer(t, s)

	err := m.Send(context.Background(), "welcome", "alice@example.com", map[string]string{goCreds.TemplateVarToken: "x"})
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
	if len(s.msgs) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestSendRequiresToken(t *testing.T) {
	m := testMailer(t, &captureSender{})

	err := m.Send(context.Background(), goCreds.TemplateVerificationToken, "alice@example.com", nil)
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestSendWrapsSMTPError(t *testing.T) {
	m := testMailer(t, &captureSender{err: errors.New("421 try later")})

	err := m.Send(context.Background(), goCreds.TemplateVerificationToken, "alice@example.com", map[string]string{
		goCreds.TemplateVarToken: "tok",
	})
	if err == nil || !strings.Contains(err.Error(), "smtp send: 421 try later") {
		t.Fatalf("expected wrapped smtp error, got %v", err)
	}
}

func TestSendHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := testMailer(t, &captureSender{block: release})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.Send(ctx, goCreds.TemplateVerificationToken, "alice@example.com", map[string]string{
		goCreds.TemplateVarToken: "tok",
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestTokenLink(t *testing.T) {
	got, err := tokenLink("https://app.example.com/reset?lang=en", "a b")
	if err != nil {
		t.Fatalf("tokenLink: %v", err)
	}
	if got != "https://app.example.com/reset?lang=en&token=a+b" {
		t.Fatalf("unexpected link %q", got)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Port: 25, From: "a@example.com"}); err == nil {
		t.Fatalf("expected missing host error")
	}
	if _, err := New(Config{Host: "smtp", From: "a@example.com"}); err == nil {
		t.Fatalf("expected missing port error")
	}
	if _, err := New(Config{Host: "smtp", Port: 25}); err == nil {
		t.Fatalf("expected missing from error")
	}
	if _, err := New(Config{Host: "smtp", Port: 25, From: "a@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
