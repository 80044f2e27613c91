// Package notify delivers job completion notices. Production sends
// real mail over SMTP; everywhere else the message is logged only, so
// test runs never spam anyone.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"

	"github.com/collate-cloud/collate/pkg/log"
)

// Sender delivers one message to its recipients.
type Sender interface {
	Send(subject, body string, recipients []string) error
}

// SMTPSender sends through a plain SMTP relay.
type SMTPSender struct {
	Addr string
	From string
}

func NewSMTPSender(host string, port int, from string) *SMTPSender {
	return &SMTPSender{Addr: fmt.Sprintf("%s:%d", host, port), From: from}
}

func (s *SMTPSender) Send(subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}

	var msg strings.Builder
	msg.WriteString("From: " + s.From + "\r\n")
	msg.WriteString("To: " + strings.Join(recipients, ", ") + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	err := smtp.SendMail(s.Addr, nil, s.From, recipients, []byte(msg.String()))
	return errors.Wrap(err, "sending mail")
}

// LogSender records the message instead of delivering it.
type LogSender struct{}

func (LogSender) Send(subject, body string, recipients []string) error {
	log.Info("suppressed notification",
		"to", strings.Join(recipients, ", "),
		"subject", subject,
		"body", body,
	)
	return nil
}
