// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	authfeature "github.com/dalemusser/teamforge/internal/app/features/authapi"
	facultyfeature "github.com/dalemusser/teamforge/internal/app/features/faculty"
	healthfeature "github.com/dalemusser/teamforge/internal/app/features/health"
	invitationsfeature "github.com/dalemusser/teamforge/internal/app/features/invitations"
	profilefeature "github.com/dalemusser/teamforge/internal/app/features/profile"
	submissionsfeature "github.com/dalemusser/teamforge/internal/app/features/submissions"
	teamsfeature "github.com/dalemusser/teamforge/internal/app/features/teams"
	"github.com/dalemusser/teamforge/internal/app/roster"
	"github.com/dalemusser/teamforge/internal/app/store/emailverify"
	resetstore "github.com/dalemusser/teamforge/internal/app/store/resets"
	"github.com/dalemusser/teamforge/internal/app/system/auth"
	"github.com/dalemusser/teamforge/internal/app/system/mailer"
	"github.com/dalemusser/teamforge/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// TeamForge mounts a public surface (health check and the auth
// endpoints) and an authenticated /api surface behind the bearer token
// middleware: profile, faculty directory, teams, invitations, and
// submissions.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.TokenTTL, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}

	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)

	verify := emailverify.New(db, appCfg.OTPExpiry, appCfg.OTPCooldown, appCfg.OTPMaxAttempts)
	resets := resetstore.New(db, appCfg.ResetExpiry)
	limiter := ratelimit.DefaultAuthLimiter()

	// The roster engine owns every team membership change.
	engine := roster.New(db, appCfg.TeamCapacity, logger)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Registration, login, and password reset (rate limited, no token)
	authHandler := authfeature.NewHandler(db, verify, resets, tokens, mail, limiter, appCfg.SiteName, appCfg.BaseURL, logger)
	r.Mount("/api/auth", authfeature.Routes(authHandler))

	// Everything below requires a valid bearer token.
	teamsHandler := teamsfeature.NewHandler(db, engine, mail, appCfg.SiteName, logger)
	invitationsHandler := invitationsfeature.NewHandler(engine, mail, appCfg.SiteName, appCfg.NotifyOnDecline, logger)

	r.Group(func(r chi.Router) {
		r.Use(tokens.RequireSignedIn)

		profileHandler := profilefeature.NewHandler(db, logger)
		r.Mount("/api/users/me", profilefeature.Routes(profileHandler))

		facultyHandler := facultyfeature.NewHandler(db, logger)
		r.Mount("/api/faculty", facultyfeature.Routes(facultyHandler))

		r.Mount("/api/teams", teamsfeature.Routes(teamsHandler))

		// Join requests address a team, so the route lives under
		// /api/teams even though the invitations feature handles it.
		r.Post("/api/teams/{teamID}/join", invitationsHandler.HandleRequestJoin)

		r.Mount("/api/invitations", invitationsfeature.Routes(invitationsHandler))

		submissionsHandler := submissionsfeature.NewHandler(db, logger)
		r.Mount("/api/submissions", submissionsfeature.Routes(submissionsHandler))
	})

	return r, nil
}
