// Package email delivers confirmation codes over SMTP.
package email

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"time"

	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

const implicitTLSPort = 465

// Sender without an SMTP server configured only logs that a message would have
// been sent, which is what local setups use.
type Sender struct {
	cfg *config.Email
	log *slog.Logger
}

func New(cfg *config.Email) *Sender {
	return &Sender{cfg: cfg, log: logger.Component("email")}
}

// IsCorrect accepts a bare address only; display names are rejected.
func (s *Sender) IsCorrect(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return errors.New(errors.KindValidation, "invalid email: %v", err)
	}
	if addr.Address != email {
		return errors.New(errors.KindValidation, "invalid email: expected a bare address")
	}
	return nil
}

func (s *Sender) Send(recipient, subject, body string) error {
	if s.cfg.SMTPServer == "" {
		s.log.Warn("smtp server is not configured, email not sent", "subject", subject)
		return nil
	}
	if err := s.deliver(recipient, s.message(recipient, subject, body, time.Now())); err != nil {
		s.log.Error("failed to send email", "server", s.cfg.SMTPServer, "error", err)
		return err
	}
	return nil
}

// deliver uses implicit TLS on port 465 and STARTTLS everywhere else.
func (s *Sender) deliver(recipient string, msg []byte) error {
	address := fmt.Sprintf("%s:%d", s.cfg.SMTPServer, s.cfg.SMTPPort)
	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPServer}
	dialer := &net.Dialer{Timeout: s.timeout()}

	var conn net.Conn
	var err error
	if s.cfg.SMTPPort == implicitTLSPort {
		conn, err = tls.DialWithDialer(dialer, "tcp", address, tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", address)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.SMTPServer)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	defer client.Close()

	if s.cfg.SMTPPort != implicitTLSPort {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start tls: %w", err)
		}
	}
	if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPServer)); err != nil {
		return fmt.Errorf("smtp authentication failed: %w", err)
	}
	if err := client.Mail(s.sender()); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return client.Quit()
}

func (s *Sender) timeout() time.Duration {
	if s.cfg.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.cfg.Timeout) * time.Second
}

// message is a plain text mail. net/mail encodes a non-ASCII sender name.
func (s *Sender) message(recipient, subject, body string, now time.Time) []byte {
	from := mail.Address{Name: s.cfg.SenderName, Address: s.sender()}
	return fmt.Appendf(nil,
		"Date: %s\r\nTo: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		now.Format(time.RFC1123Z), recipient, from.String(), subject, body,
	)
}

// sender falls back to the SMTP username when no sender address is configured.
func (s *Sender) sender() string {
	if s.cfg.SenderEmail != "" {
		return s.cfg.SenderEmail
	}
	return s.cfg.Username
}
