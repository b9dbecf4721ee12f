package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Message is a plain-text email handed to the sender.
type Message struct {
	Subject    string
	Body       string
	From       string
	Recipients []string
}

// Sender delivers notification emails. Implementations are fire-and-forget
// from the caller's point of view: the import pipeline never waits on them.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers messages through a plain SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender constructs an SMTP-backed sender. Username is optional; when
// empty the relay is used unauthenticated.
func NewSMTPSender(host, port, username, password, from string) (*SMTPSender, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("mailer: smtp host is required")
	}
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("mailer: from address is required")
	}

	var auth smtp.Auth
	if strings.TrimSpace(username) != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPSender{
		addr: net.JoinHostPort(host, port),
		auth: auth,
		from: from,
		send: smtp.SendMail,
	}, nil
}

// Send delivers the message, honouring context cancellation before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recipients := normalizeRecipients(msg.Recipients)
	if len(recipients) == 0 {
		return errors.New("mailer: at least one recipient is required")
	}
	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = s.from
	}

	if err := s.send(s.addr, s.auth, from, recipients, BuildMessage(msg.Subject, msg.Body, from, recipients)); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

// BuildMessage renders RFC 5322 headers plus the plain-text body.
func BuildMessage(subject, body, from string, recipients []string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func normalizeRecipients(recipients []string) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.TrimSpace(value)
}
