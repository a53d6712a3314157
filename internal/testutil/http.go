package testutil

import (
	"context"
	"net/http"

	"github.com/dalemusser/teamforge/internal/app/system/auth"
	"github.com/dalemusser/teamforge/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AsUser attaches u to the request context the way the auth middleware
// would after verifying a bearer token.
func AsUser(r *http.Request, u models.User) *http.Request {
	return auth.WithUser(r, &auth.AuthUser{
		ID:       u.ID.Hex(),
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
	})
}
