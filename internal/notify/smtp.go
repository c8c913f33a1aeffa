package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP mails messages as plain text.
type SMTP struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

// NewSMTP returns a Notifier sending through the relay in cfg.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp: host is required")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("smtp: sender and at least one recipient are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	return &SMTP{cfg: cfg, send: smtp.SendMail, now: time.Now}, nil
}

// Notify sends msg to all recipients.
func (s *SMTP) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, s.cfg.From, s.cfg.To, s.compose(msg)); err != nil {
		return fmt.Errorf("smtp: sending %q: %w", msg.Subject, err)
	}
	return nil
}

func (s *SMTP) compose(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}
