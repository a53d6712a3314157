// Package authapi serves registration and authentication: OTP email
// verification, account creation, JWT login, and the password reset flow.
package authapi

import (
	"context"
	"net/http"

	"github.com/dalemusser/teamforge/internal/app/store/emailverify"
	resetstore "github.com/dalemusser/teamforge/internal/app/store/resets"
	userstore "github.com/dalemusser/teamforge/internal/app/store/users"
	"github.com/dalemusser/teamforge/internal/app/system/auth"
	"github.com/dalemusser/teamforge/internal/app/system/inputval"
	"github.com/dalemusser/teamforge/internal/app/system/mailer"
	"github.com/dalemusser/teamforge/internal/app/system/normalize"
	"github.com/dalemusser/teamforge/internal/app/system/ratelimit"
	"github.com/dalemusser/teamforge/internal/app/system/respond"
	"github.com/dalemusser/teamforge/internal/app/system/timeouts"
	"github.com/dalemusser/teamforge/internal/domain/composition"
	"github.com/dalemusser/teamforge/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler owns the authentication endpoints.
type Handler struct {
	Users   *userstore.Store
	Verify  *emailverify.Store
	Resets  *resetstore.Store
	Tokens  *auth.TokenManager
	Mail    *mailer.Mailer
	Limiter *ratelimit.AuthLimiter
	Log     *zap.Logger

	SiteName string
	BaseURL  string
}

// NewHandler constructs the auth Handler.
func NewHandler(db *mongo.Database, verify *emailverify.Store, resets *resetstore.Store, tokens *auth.TokenManager, mail *mailer.Mailer, limiter *ratelimit.AuthLimiter, siteName, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Verify:   verify,
		Resets:   resets,
		Tokens:   tokens,
		Mail:     mail,
		Limiter:  limiter,
		Log:      logger,
		SiteName: siteName,
		BaseURL:  baseURL,
	}
}

type sendOTPRequest struct {
	Email string `json:"email" validate:"required,email" label:"Email"`
}

// HandleSendOTP mails a verification code to an address that is not yet
// registered.
func (h *Handler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}
	email := normalize.Email(req.Email)

	if ok, reason := h.Limiter.Check(r, email); !ok {
		respond.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, email); err == nil {
		respond.Error(w, http.StatusConflict, "An account with this email already exists.")
		return
	} else if err != mongo.ErrNoDocuments {
		respond.Internal(w, h.Log, "send-otp: lookup failed", err)
		return
	}

	code, err := h.Verify.Create(ctx, email)
	if err != nil {
		if err == emailverify.ErrCooldown {
			respond.Error(w, http.StatusTooManyRequests, "A code was sent recently. Please wait before requesting another.")
			return
		}
		respond.Internal(w, h.Log, "send-otp: create code failed", err)
		return
	}

	h.sendAsync(mailer.BuildVerificationEmail(mailer.VerificationEmailData{
		SiteName:  h.SiteName,
		Code:      code,
		ExpiresIn: mailer.HumanDuration(h.Verify.Expiry()),
	}), email, "verification code")

	respond.JSON(w, http.StatusOK, map[string]string{
		"message": "Verification code sent.",
	})
}

// HandleResendOTP regenerates the code for an address, subject to the
// same cooldown as the first send.
func (h *Handler) HandleResendOTP(w http.ResponseWriter, r *http.Request) {
	h.HandleSendOTP(w, r)
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email" label:"Email"`
	Code  string `json:"code" validate:"required,len=6" label:"Code"`
}

// HandleVerifyOTP checks a code against the stored hash.
func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	switch err := h.Verify.VerifyCode(ctx, normalize.Email(req.Email), req.Code); err {
	case nil:
		respond.JSON(w, http.StatusOK, map[string]string{"message": "Email verified."})
	case emailverify.ErrNotFound:
		respond.Error(w, http.StatusNotFound, "No verification code found. Request a new one.")
	case emailverify.ErrInvalidCode:
		respond.Error(w, http.StatusBadRequest, "Incorrect verification code.")
	case emailverify.ErrTooManyAttempts:
		respond.Error(w, http.StatusTooManyRequests, "Too many incorrect attempts. Request a new code.")
	default:
		respond.Internal(w, h.Log, "verify-otp failed", err)
	}
}

type registerRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=30" label:"Username"`
	Password    string `json:"password" validate:"required,min=8,max=72" label:"Password"`
	Name        string `json:"name" validate:"required,max=100" label:"Full name"`
	Email       string `json:"email" validate:"required,email" label:"Email"`
	Designation string `json:"designation" validate:"required,max=100" label:"Designation"`
	Department  string `json:"department" validate:"required,max=100" label:"Department"`
	Gender      string `json:"gender" validate:"omitempty,gender" label:"Gender"`
	Experience  int    `json:"experience" validate:"min=0,max=60" label:"Experience"`
}

// HandleRegister creates the account once the email is OTP-verified.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}
	email := normalize.Email(req.Email)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Verify.Consume(ctx, email); err != nil {
		if err == emailverify.ErrNotVerified {
			respond.Error(w, http.StatusForbidden, "Email is not verified. Complete OTP verification first.")
			return
		}
		respond.Internal(w, h.Log, "register: consume verification failed", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Internal(w, h.Log, "register: hash password failed", err)
		return
	}

	user, err := h.Users.Create(ctx, models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Email:        email,
		Designation:  req.Designation,
		Department:   req.Department,
		Gender:       composition.NormalizeGender(req.Gender),
		Experience:   req.Experience,
	})
	if err != nil {
		switch err {
		case userstore.ErrDuplicateEmail:
			respond.Error(w, http.StatusConflict, "An account with this email already exists.")
		case userstore.ErrDuplicateUsername:
			respond.Error(w, http.StatusConflict, "This username is taken.")
		default:
			respond.Internal(w, h.Log, "register: create user failed", err)
		}
		return
	}

	token, err := h.Tokens.Issue(auth.AuthUser{
		ID:       user.ID.Hex(),
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
	})
	if err != nil {
		respond.Internal(w, h.Log, "register: issue token failed", err)
		return
	}

	h.Log.Info("user registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("department", user.Department))
	respond.JSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  user,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

// HandleLogin verifies credentials and issues a JWT.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}
	email := normalize.Email(req.Email)

	if ok, reason := h.Limiter.Check(r, email); !ok {
		respond.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			respond.Error(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		respond.Internal(w, h.Log, "login: lookup failed", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respond.Error(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	token, err := h.Tokens.Issue(auth.AuthUser{
		ID:       user.ID.Hex(),
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
	})
	if err != nil {
		respond.Internal(w, h.Log, "login: issue token failed", err)
		return
	}

	h.Limiter.ResetEmail(email)
	h.Log.Info("user logged in", zap.String("user_id", user.ID.Hex()))
	respond.JSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email" label:"Email"`
}

// HandleForgotPassword mails a reset link. The response is 200 whether or
// not the account exists.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}
	email := normalize.Email(req.Email)

	if ok, reason := h.Limiter.Check(r, email); !ok {
		respond.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, email)
	if err == nil {
		token, cerr := h.Resets.Create(ctx, user.ID, user.Email)
		if cerr != nil {
			respond.Internal(w, h.Log, "forgot-password: create token failed", cerr)
			return
		}
		h.sendAsync(mailer.BuildResetEmail(mailer.ResetEmailData{
			SiteName:  h.SiteName,
			Name:      user.Name,
			ResetLink: h.BaseURL + "/reset-password?token=" + token,
			ExpiresIn: mailer.HumanDuration(h.Resets.Expiry()),
		}), user.Email, "password reset")
	} else if err != mongo.ErrNoDocuments {
		respond.Internal(w, h.Log, "forgot-password: lookup failed", err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{
		"message": "If the email is registered, a reset link has been sent.",
	})
}

type resetTokenRequest struct {
	Token string `json:"token" validate:"required" label:"Token"`
}

// HandleVerifyResetToken reports whether a reset token is still usable.
func (h *Handler) HandleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req resetTokenRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Resets.Verify(ctx, req.Token); err != nil {
		if err == resetstore.ErrNotFound {
			respond.Error(w, http.StatusBadRequest, "Reset link is invalid or has expired.")
			return
		}
		respond.Internal(w, h.Log, "verify-reset-token failed", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"valid": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required" label:"Token"`
	Password string `json:"password" validate:"required,min=8,max=72" label:"Password"`
}

// HandleResetPassword consumes a reset token and sets the new password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := respond.Decode(w, r, &req); err != nil {
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		respond.Violations(w, "Validation failed.", res.Messages())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	reset, err := h.Resets.Consume(ctx, req.Token)
	if err != nil {
		if err == resetstore.ErrNotFound {
			respond.Error(w, http.StatusBadRequest, "Reset link is invalid or has expired.")
			return
		}
		respond.Internal(w, h.Log, "reset-password: consume failed", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Internal(w, h.Log, "reset-password: hash failed", err)
		return
	}
	if err := h.Users.UpdatePassword(ctx, reset.UserID, string(hash)); err != nil {
		respond.Internal(w, h.Log, "reset-password: update failed", err)
		return
	}

	h.Log.Info("password reset", zap.String("user_id", reset.UserID.Hex()))
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Password updated. You can sign in now."})
}

// sendAsync mails without blocking the request; failures are logged and
// never change request state.
func (h *Handler) sendAsync(msg mailer.Email, to, kind string) {
	msg.To = to
	go func() {
		if err := h.Mail.Send(msg); err != nil {
			h.Log.Error("mail send failed",
				zap.String("kind", kind),
				zap.String("to", to),
				zap.Error(err))
		}
	}()
}
