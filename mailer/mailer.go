// Package mailer delivers goCreds token messages over SMTP.
//
// Each engine template has an HTML and a plain-text body embedded in the
// binary. Message bodies contain raw tokens; nothing here logs them.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"

	goCreds "github.com/MrEthical07/goCreds"
)

//go:embed templates/*
var templateFS embed.FS

var (
	ErrUnknownTemplate = errors.New("mailer: unknown template")
	ErrMissingToken    = errors.New("mailer: token variable missing")
)

// Config holds SMTP settings and the links rendered into messages.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// Product names the service in message bodies.
	Product string
	// VerifyURL and ResetURL, when set, get ?token=<raw> appended and are
	// rendered as links.
	VerifyURL string
	ResetURL  string
}

func (c Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP host")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP port")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP from address")
	}
	return nil
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type template struct {
	subject string
	linkURL string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

type templateData struct {
	Product string
	Token   string
	Link    string
}

// Mailer implements goCreds.Mailer.
type Mailer struct {
	from      string
	product   string
	sender    sender
	templates map[string]template
}

// New validates cfg and parses the embedded templates.
func New(cfg Config) (*Mailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newMailer(cfg, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password))
}

func newMailer(cfg Config, s sender) (*Mailer, error) {
	product := cfg.Product
	if product == "" {
		product = "goCreds"
	}

	m := &Mailer{
		from:      cfg.From,
		product:   product,
		sender:    s,
		templates: make(map[string]template, 2),
	}

	defs := []struct {
		name    string
		subject string
		linkURL string
	}{
		{goCreds.TemplateVerificationToken, "Confirm your " + product + " account", cfg.VerifyURL},
		{goCreds.TemplateForgotPassword, "Reset your " + product + " password", cfg.ResetURL},
	}
	for _, def := range defs {
		html, err := htmltemplate.ParseFS(templateFS, "templates/"+def.name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s html: %w", def.name, err)
		}
		text, err := texttemplate.ParseFS(templateFS, "templates/"+def.name+".txt")
		if err != nil {
			return nil, fmt.Errorf("parse %s text: %w", def.name, err)
		}
		m.templates[def.name] = template{
			subject: def.subject,
			linkURL: def.linkURL,
			html:    html,
			text:    text,
		}
	}
	return m, nil
}

// Send renders name for recipient and hands it to the SMTP server. It
// returns when the server accepts the message or ctx is done.
func (m *Mailer) Send(ctx context.Context, name, recipient string, vars map[string]string) error {
	tmpl, ok := m.templates[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	token := vars[goCreds.TemplateVarToken]
	if token == "" {
		return ErrMissingToken
	}

	msg, err := m.render(tmpl, recipient, token)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- m.sender.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) render(tmpl template, recipient, token string) (*gomail.Message, error) {
	data := templateData{Product: m.product, Token: token}
	if tmpl.linkURL != "" {
		link, err := tokenLink(tmpl.linkURL, token)
		if err != nil {
			return nil, err
		}
		data.Link = link
	}

	var html, text bytes.Buffer
	if err := tmpl.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := tmpl.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", tmpl.subject)
	msg.SetBody("text/plain", text.String())
	msg.AddAlternative("text/html", html.String())
	return msg, nil
}

func tokenLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse link url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var _ goCreds.Mailer = (*Mailer)(nil)
