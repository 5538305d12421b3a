// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// SMTPSender delivers plain-text mail through an SMTP relay. STARTTLS is
// used when the server offers it.
type SMTPSender struct {
	cfg     SMTPConfig
	timeout time.Duration
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig, timeout time.Duration) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("smtp from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, timeout: timeout}, nil
}

// Send delivers one message.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return oops.Code("NOTIFY_FAILED").Errorf("header values must not contain line breaks")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return s.fail("dial", err)
	}
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline) //nolint:errcheck // fresh TCP conn

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return s.fail("greeting", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return s.fail("starttls", err)
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return s.fail("auth", err)
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return s.fail("mail from", err)
	}
	if err := c.Rcpt(to); err != nil {
		return s.fail("rcpt to", err)
	}

	w, err := c.Data()
	if err != nil {
		return s.fail("data", err)
	}
	if _, err := w.Write(formatMessage(s.cfg.From, to, subject, body)); err != nil {
		return s.fail("write body", err)
	}
	if err := w.Close(); err != nil {
		return s.fail("end data", err)
	}
	if err := c.Quit(); err != nil {
		return s.fail("quit", err)
	}
	return nil
}

func (s *SMTPSender) fail(step string, err error) error {
	return oops.Code("NOTIFY_FAILED").
		With("provider", ProviderSMTP).
		With("operation", step).
		With("host", s.cfg.Host).
		Wrap(err)
}

func formatMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
