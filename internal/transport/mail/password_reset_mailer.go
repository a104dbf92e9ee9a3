package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

type PasswordResetMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	useTLS   bool
	send     sendFunc
}

func NewPasswordResetMailer(host, port, username, password, from string, useTLS bool) *PasswordResetMailer {
	m := &PasswordResetMailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
		useTLS:   useTLS,
	}
	m.send = smtp.SendMail
	if useTLS {
		m.send = m.sendImplicitTLS
	}
	return m
}

func (m *PasswordResetMailer) SendPasswordReset(ctx context.Context, email, token, resetURL string) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if m.host == "" || m.port == "" || m.from == "" {
		return errors.New("mailer missing configuration")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := net.JoinHostPort(m.host, m.port)
	return m.send(addr, auth, m.from, []string{email}, m.buildMessage(email, token, resetURL))
}

func (m *PasswordResetMailer) buildMessage(email, token, resetURL string) []byte {
	var body strings.Builder
	body.WriteString("Someone asked to reset the password of your PixelMart account.\r\n\r\n")
	if resetURL != "" {
		fmt.Fprintf(&body, "Open this link to choose a new password:\r\n%s\r\n\r\n", resetURL)
	}
	fmt.Fprintf(&body, "Or paste this code on the reset page: %s\r\n\r\n", token)
	body.WriteString("The link expires soon and works once. If you did not ask for it, ignore this email.\r\n")

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", email)
	msg.WriteString("Subject: Reset your PixelMart password\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	msg.WriteString(body.String())
	return []byte(msg.String())
}

// sendImplicitTLS is used for SMTPS ports where the session starts encrypted.
func (m *PasswordResetMailer) sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return fmt.Errorf("smtp tls dial: %w", err)
	}
	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
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
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
