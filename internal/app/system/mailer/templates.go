// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// HumanDuration renders a duration the way the emails phrase it:
// "5 minutes", "1 hour", "90 minutes".
func HumanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	m := int(d / time.Minute)
	if m <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

// VerificationEmailData holds data for the OTP verification email.
type VerificationEmailData struct {
	SiteName  string
	Code      string
	ExpiresIn string // e.g., "5 minutes"
}

// BuildVerificationEmail creates the OTP email with HTML and text bodies.
// The caller sets To.
func BuildVerificationEmail(data VerificationEmailData) Email {
	return Email{
		Subject:  fmt.Sprintf("Your %s verification code", data.SiteName),
		TextBody: buildVerificationText(data),
		HTMLBody: buildVerificationHTML(data),
	}
}

func buildVerificationText(data VerificationEmailData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Your %s verification code is: %s\n\n", data.SiteName, data.Code))
	buf.WriteString(fmt.Sprintf("This code expires in %s.\n\n", data.ExpiresIn))
	buf.WriteString("If you did not request this code, you can safely ignore this email.\n")
	return buf.String()
}

func buildVerificationHTML(data VerificationEmailData) string {
	tmpl := template.Must(template.New("verification").Parse(verificationHTMLTemplate))
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}

// ResetEmailData holds data for the password reset email.
type ResetEmailData struct {
	SiteName  string
	Name      string
	ResetLink string
	ExpiresIn string
}

// BuildResetEmail creates the password reset email.
func BuildResetEmail(data ResetEmailData) Email {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Hi %s,\n\n", data.Name))
	buf.WriteString(fmt.Sprintf("A password reset was requested for your %s account.\n", data.SiteName))
	buf.WriteString("Open this link to choose a new password:\n\n")
	buf.WriteString(data.ResetLink + "\n\n")
	buf.WriteString(fmt.Sprintf("The link expires in %s. If you did not request a reset, ignore this email and your password stays unchanged.\n", data.ExpiresIn))

	return Email{
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: buf.String(),
	}
}

// TeamCreatedEmailData holds data for the team formation notice sent to
// every member when a team is created.
type TeamCreatedEmailData struct {
	SiteName   string
	TeamName   string
	LeaderName string
	Members    []string
}

// BuildTeamCreatedEmail creates the team formation notice.
func BuildTeamCreatedEmail(data TeamCreatedEmailData) Email {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("You are now a member of team %q on %s.\n\n", data.TeamName, data.SiteName))
	buf.WriteString(fmt.Sprintf("Team leader: %s\n\nMembers:\n", data.LeaderName))
	for _, m := range data.Members {
		buf.WriteString("  - " + m + "\n")
	}
	buf.WriteString("\nLog in to view your team and track submissions.\n")

	return Email{
		Subject:  fmt.Sprintf("Welcome to team %s", data.TeamName),
		TextBody: buf.String(),
	}
}

// DeclineEmailData holds data for the optional invitation-declined notice
// sent to the team leader.
type DeclineEmailData struct {
	SiteName     string
	TeamName     string
	DeclinerName string
}

// BuildDeclineEmail creates the invitation-declined notice.
func BuildDeclineEmail(data DeclineEmailData) Email {
	text := fmt.Sprintf("%s has declined the invitation to join team %q on %s.\n",
		data.DeclinerName, data.TeamName, data.SiteName)
	return Email{
		Subject:  fmt.Sprintf("Invitation declined for team %s", data.TeamName),
		TextBody: text,
	}
}

const verificationHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Verification Code</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <!-- Header -->
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>

          <!-- Content -->
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Your verification code is:
              </p>

              <!-- Code Box -->
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 24px; text-align: center; margin-bottom: 24px;">
                <span style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Code}}</span>
              </div>

              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">
                This code expires in {{.ExpiresIn}}.
              </p>
            </td>
          </tr>

          <!-- Footer -->
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you did not request this code, you can safely ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
