// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/ezhangle/elle/internal/app/system/htmlsanitize"
)

// InvitationSubject is the subject line of every invitation.
const InvitationSubject = "Invitation to test Infinit !"

// InvitationEmailData holds data for the invitation templates.
type InvitationEmailData struct {
	DownloadURL    string
	ActivationCode string
}

// BuildInvitationEmail creates the beta invitation with text and HTML bodies.
func BuildInvitationEmail(to string, data InvitationEmailData) Email {
	return Email{
		To:       to,
		Subject:  InvitationSubject,
		TextBody: buildInvitationText(data),
		HTMLBody: buildInvitationHTML(data),
	}
}

func buildInvitationText(data InvitationEmailData) string {
	var buf bytes.Buffer
	buf.WriteString("Dear early beta tester,\n\n")
	buf.WriteString(fmt.Sprintf("    This is an official invitation from Infinit, just download it for your platform at %s and paste your activation code into the registration form.\n\n", data.DownloadURL))
	buf.WriteString(fmt.Sprintf("Activation code: %s\n\n", data.ActivationCode))
	buf.WriteString("-- \nThe infinit team\nhttp://infinit.io")
	return buf.String()
}

var invitationTmpl = template.Must(template.New("invitation").Parse(invitationHTMLTemplate))

func buildInvitationHTML(data InvitationEmailData) string {
	var buf bytes.Buffer
	_ = invitationTmpl.Execute(&buf, data)
	return buf.String()
}

func textAsHTML(s string) template.HTML {
	return htmlsanitize.PlainTextToHTML(s)
}

const invitationHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Invitation to test Infinit</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151;">Dear early beta tester,</p>
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                This is an official invitation from Infinit, just download it for your platform at
                <a href="{{.DownloadURL}}">{{.DownloadURL}}</a> and paste your activation code into the registration form.
              </p>
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 20px; text-align: center; margin-bottom: 24px;">
                <span style="font-size: 14px; font-weight: 700; color: #1f2937; font-family: 'Courier New', monospace; word-break: break-all;">{{.ActivationCode}}</span>
              </div>
              <p style="margin: 0; font-size: 13px; color: #6b7280;">The infinit team<br><a href="http://infinit.io">http://infinit.io</a></p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
