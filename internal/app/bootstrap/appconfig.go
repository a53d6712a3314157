// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level and format, CORS, and request body size
// limits. AppConfig is where everything specific to this application
// lives: connection strings, token settings, team rules, and mail.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI      string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase string // Database name within MongoDB

	// Token configuration. JWTSecret signs the bearer tokens issued at
	// registration and login; it must be strong in production.
	JWTSecret string
	TokenTTL  time.Duration

	// Team formation rules
	TeamCapacity int // members per team (leader included)

	// Email verification (OTP) settings
	OTPExpiry      time.Duration // how long a code stays valid
	OTPCooldown    time.Duration // minimum gap between sends to one address
	OTPMaxAttempts int           // wrong guesses before the code is voided

	// Password reset settings
	ResetExpiry time.Duration // how long a reset token stays valid

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address
	MailFromName string // From display name

	// Base URL for email links (password reset, etc.)
	BaseURL string // e.g., "https://hackathon.example.edu" or "http://localhost:3000"

	// Display name used in email subjects and bodies
	SiteName string

	// NotifyOnDecline controls whether an inviter is emailed when their
	// invitation is declined.
	NotifyOnDecline bool
}
