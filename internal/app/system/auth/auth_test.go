package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T, ttl time.Duration) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(testSecret, ttl, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return tm
}

func TestIssueAndParse(t *testing.T) {
	tm := newTestManager(t, time.Hour)

	u := AuthUser{ID: "abc123", Username: "jsmith", Name: "J. Smith", Email: "jsmith@example.edu"}
	token, err := tm.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != u.ID {
		t.Errorf("Subject = %q, want %q", claims.Subject, u.ID)
	}
	if claims.Username != u.Username || claims.Email != u.Email {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseExpired(t *testing.T) {
	tm := newTestManager(t, time.Hour)
	tm.ttl = -time.Minute

	token, err := tm.Issue(AuthUser{ID: "abc"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tm.Parse(token); err == nil {
		t.Fatal("expected expired token to fail parsing")
	}
}

func TestParseWrongSecret(t *testing.T) {
	tm := newTestManager(t, time.Hour)
	other, err := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, err := other.Issue(AuthUser{ID: "abc"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tm.Parse(token); err == nil {
		t.Fatal("expected token signed with a different secret to fail")
	}
}

func TestNewTokenManagerEmptySecret(t *testing.T) {
	if _, err := NewTokenManager("", time.Hour, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestRequireSignedIn(t *testing.T) {
	tm := newTestManager(t, time.Hour)

	var got *AuthUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CurrentUser(r)
		w.WriteHeader(http.StatusOK)
	})
	handler := tm.RequireSignedIn(next)

	// No token: 401.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	// Garbage token: 401.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	// Valid token: user lands in context.
	token, err := tm.Issue(AuthUser{ID: "u1", Username: "jsmith", Name: "J. Smith", Email: "j@example.edu"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
	if got == nil || got.ID != "u1" || got.Username != "jsmith" {
		t.Errorf("context user = %+v", got)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(r); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
