// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for TeamForge.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: TEAMFORGE_MONGO_URI, TEAMFORGE_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "teamforge", Desc: "MongoDB database name"},

	// Token settings
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "JWT signing secret (must be strong in production)"},
	{Name: "token_ttl", Default: "720h", Desc: "Bearer token lifetime (e.g., 24h, 720h)"},

	// Team formation rules
	{Name: "team_capacity", Default: 5, Desc: "Members per team, leader included"},

	// Email verification (OTP) settings
	{Name: "otp_expiry", Default: "10m", Desc: "Verification code expiry (e.g., 10m, 1h)"},
	{Name: "otp_cooldown", Default: "60s", Desc: "Minimum gap between code sends to one address"},
	{Name: "otp_max_attempts", Default: 5, Desc: "Wrong guesses before a code is voided"},

	// Password reset settings
	{Name: "reset_expiry", Default: "1h", Desc: "Password reset token expiry"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@teamforge.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "TeamForge", Desc: "From display name"},

	// Base URL for email links (password reset, etc.)
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},

	// Display name used in email subjects and bodies
	{Name: "site_name", Default: "TeamForge", Desc: "Site display name for emails"},

	// Notifications
	{Name: "notify_on_decline", Default: false, Desc: "Email the inviter when an invitation is declined"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, TEAMFORGE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TEAMFORGE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		JWTSecret: appValues.String("jwt_secret"),
		TokenTTL:  appValues.Duration("token_ttl", 720*time.Hour),

		TeamCapacity: appValues.Int("team_capacity"),

		OTPExpiry:      appValues.Duration("otp_expiry", 10*time.Minute),
		OTPCooldown:    appValues.Duration("otp_cooldown", time.Minute),
		OTPMaxAttempts: appValues.Int("otp_max_attempts"),

		ResetExpiry: appValues.Duration("reset_expiry", time.Hour),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL:  appValues.String("base_url"),
		SiteName: appValues.String("site_name"),

		NotifyOnDecline: appValues.Bool("notify_on_decline"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
//
// TeamForge validates the MongoDB URI format and the team rules to catch
// configuration errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.TeamCapacity < 5 {
		return fmt.Errorf("team_capacity must be at least 5 to satisfy the composition minimums, got %d", appCfg.TeamCapacity)
	}
	if appCfg.OTPMaxAttempts < 1 {
		return fmt.Errorf("otp_max_attempts must be at least 1, got %d", appCfg.OTPMaxAttempts)
	}
	if coreCfg.Env == "prod" && appCfg.JWTSecret == "dev-only-change-me-please-0123456789ABCDEF" {
		return fmt.Errorf("jwt_secret must be changed from the development default in production")
	}

	return nil
}
