package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/toolshed/config"
)

// Mailer delivers an HTML email to a single recipient.
type Mailer interface {
	SendMail(to, subject, htmlBody string) error
}

// SMTPMailer sends mail through the configured SMTP relay.
type SMTPMailer struct {
	cfg config.AppConfig
}

// NewMailer returns an SMTP mailer, or a mailer that only logs the message when SMTP is not configured.
func NewMailer(cfg config.AppConfig, log *zap.Logger) Mailer {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return &LogMailer{log: log}
	}
	return &SMTPMailer{cfg: cfg}
}

// SendMail sends an HTML email using the SMTP settings.
func (m *SMTPMailer) SendMail(to, subject, htmlBody string) error {
	cfg := m.cfg
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return errors.New("smtp not configured")
	}
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	msg := buildMessage(cfg.SMTPFrom, cfg.SMTPFromName, to, subject, htmlBody)

	if !cfg.SMTPTLS {
		return smtp.SendMail(addr, auth, cfg.SMTPFrom, []string{to}, msg)
	}

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	c, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.SMTPHost}); err != nil {
			return err
		}
	}
	if cfg.SMTPUsername != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.SMTPFrom); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from, fromName, to, subject, htmlBody string) []byte {
	if fromName == "" {
		fromName = "Toolshed"
	}
	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", fromName), from)},
		{"To", to},
		{"Subject", mime.BEncoding.Encode("UTF-8", subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}
	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	return []byte(msg.String())
}

// LogMailer writes messages to the log instead of sending them, for development setups without SMTP.
type LogMailer struct {
	log *zap.Logger
}

// SendMail logs the message.
func (m *LogMailer) SendMail(to, subject, htmlBody string) error {
	if m.log != nil {
		m.log.Info("smtp not configured, mail not sent",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.String("body", htmlBody),
		)
	}
	return nil
}
