// internal/app/system/mailer/sendgrid.go
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGrid delivers through the SendGrid v3 API.
type SendGrid struct {
	apiKey string
}

// NewSendGrid returns a SendGrid transport.
func NewSendGrid(apiKey string) *SendGrid {
	return &SendGrid{apiKey: apiKey}
}

// Deliver implements Transport.
func (s *SendGrid) Deliver(ctx context.Context, from Sender, msg Email) error {
	client := sendgrid.NewSendClient(s.apiKey)
	resp, err := client.SendWithContext(ctx, sendGridMessage(from, msg))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func sendGridMessage(from Sender, msg Email) *sgmail.SGMailV3 {
	html := msg.HTMLBody
	if html == "" {
		html = string(textAsHTML(msg.TextBody))
	}
	return sgmail.NewSingleEmail(
		sgmail.NewEmail(from.Name, from.Address),
		msg.Subject,
		sgmail.NewEmail("", msg.To),
		msg.TextBody,
		html,
	)
}
