package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
)

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// SMTPSender delivers messages through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	config SMTPConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now    func() time.Time
}

// NewSMTPSender validates cfg and returns a sender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.FromAddress == "" {
		return nil, errors.New("smtp host and from address required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{config: cfg, send: smtp.SendMail, now: time.Now}, nil
}

// Send delivers msg. net/smtp has no context support, so the send runs on
// its own goroutine and ctx only bounds how long the caller waits.
func (s *SMTPSender) Send(ctx context.Context, msg goOTP.EmailMessage) error {
	if msg.To == "" {
		return errors.New("no email recipient provided")
	}
	if containsNewline(msg.To) || containsNewline(msg.Subject) {
		return errors.New("header value contains a line break")
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	raw := s.render(msg)

	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.config.FromAddress, []string{msg.To}, raw)
	}()

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

func (s *SMTPSender) render(msg goOTP.EmailMessage) []byte {
	from := s.config.FromAddress
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}

	headers := [][2]string{
		{"From", from},
		{"To", msg.To},
		{"Subject", msg.Subject},
		{"Date", s.now().UTC().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/plain; charset="utf-8"`},
	}

	var b strings.Builder
	for _, h := range headers {
		b.WriteString(h[0])
		b.WriteString(": ")
		b.WriteString(h[1])
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func containsNewline(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}
