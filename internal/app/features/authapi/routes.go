package authapi

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted under /api/auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(h.Limiter.Middleware)
	r.Post("/send-otp", h.HandleSendOTP)
	r.Post("/verify-otp", h.HandleVerifyOTP)
	r.Post("/resend-otp", h.HandleResendOTP)
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/forgot-password", h.HandleForgotPassword)
	r.Post("/verify-reset-token", h.HandleVerifyResetToken)
	r.Post("/reset-password", h.HandleResetPassword)
	return r
}
