// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Email is one outgoing message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender identifies who mail comes from.
type Sender struct {
	Name    string
	Address string
}

// String renders the sender as `Name <address>`.
func (s Sender) String() string {
	if s.Name == "" {
		return s.Address
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Address)
}

// Transport delivers a message. SMTP and SendGrid implement it.
type Transport interface {
	Deliver(ctx context.Context, from Sender, msg Email) error
}

// Mailer validates messages and hands them to a transport.
type Mailer struct {
	transport Transport
	from      Sender
	log       *zap.Logger
}

// New returns a Mailer sending as from through t.
func New(t Transport, from Sender, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailer{transport: t, from: from, log: log}
}

// Send delivers msg. Failures are logged and returned wrapped.
func (m *Mailer) Send(ctx context.Context, msg Email) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mailer: missing recipient")
	}
	if msg.Subject == "" || msg.TextBody == "" {
		return errors.New("mailer: subject and text body are required")
	}
	if err := m.transport.Deliver(ctx, m.from, msg); err != nil {
		m.log.Warn("mail delivery failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	m.log.Info("mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
