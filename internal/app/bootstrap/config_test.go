package bootstrap

import (
	"testing"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "teamforge",
		JWTSecret:      "a-real-secret-set-by-the-operator",
		TokenTTL:       720 * time.Hour,
		TeamCapacity:   5,
		OTPExpiry:      10 * time.Minute,
		OTPCooldown:    time.Minute,
		OTPMaxAttempts: 5,
		ResetExpiry:    time.Hour,
	}
}

func TestValidateConfigAccepts(t *testing.T) {
	core := &config.CoreConfig{Env: "dev"}
	if err := ValidateConfig(core, validAppConfig(), zap.NewNop()); err != nil {
		t.Fatalf("ValidateConfig: %v", err)
	}
}

func TestValidateConfigRejects(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		mutate func(*AppConfig)
	}{
		{
			name:   "bad mongo uri",
			env:    "dev",
			mutate: func(c *AppConfig) { c.MongoURI = "http://not-mongo" },
		},
		{
			name: "capacity below composition minimums",
			env:  "dev",
			// 2F + 2M + distinct cohort minimums cannot fit in 4.
			mutate: func(c *AppConfig) { c.TeamCapacity = 4 },
		},
		{
			name:   "zero otp attempts",
			env:    "dev",
			mutate: func(c *AppConfig) { c.OTPMaxAttempts = 0 },
		},
		{
			name: "dev jwt secret in prod",
			env:  "prod",
			mutate: func(c *AppConfig) {
				c.JWTSecret = "dev-only-change-me-please-0123456789ABCDEF"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig()
			tt.mutate(&cfg)
			core := &config.CoreConfig{Env: tt.env}
			if err := ValidateConfig(core, cfg, zap.NewNop()); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
