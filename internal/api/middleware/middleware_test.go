package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleadmin/internal/apperr"
	"roleadmin/internal/utils/logger"
)

const secret = "test-secret"

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func sign(t *testing.T, claims jwt.Claims, key string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func run(t *testing.T, mw echo.MiddlewareFunc, method, header string) (string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/api/admin/users", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	var seen string
	err := mw(func(c echo.Context) error {
		seen = GetUserID(c)
		return nil
	})(c)
	return seen, err
}

func assertStatus(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected *echo.HTTPError, got %v", err)
	assert.Equal(t, code, he.Code)
}

func TestAuthAcceptsIDClaims(t *testing.T) {
	auth := NewAuthMiddleware(secret).Middleware()
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	cases := map[string]*Claims{
		"id":     {ID: "u-1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}},
		"userId": {UserID: "u-1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}},
		"sub":    {RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: exp}},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			seen, err := run(t, auth, http.MethodGet, "Bearer "+sign(t, claims, secret))
			require.NoError(t, err)
			assert.Equal(t, "u-1", seen)
		})
	}
}

func TestAuthRejects(t *testing.T) {
	auth := NewAuthMiddleware(secret).Middleware()
	past := jwt.NewNumericDate(time.Now().Add(-time.Minute))

	cases := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"empty token":  "Bearer ",
		"garbage":      "Bearer not.a.jwt",
		"wrong secret": "Bearer " + sign(t, &Claims{ID: "u-1"}, "other"),
		"expired":      "Bearer " + sign(t, &Claims{ID: "u-1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past}}, secret),
		"no identity":  "Bearer " + sign(t, &Claims{Email: "a@example.com"}, secret),
		"three parts":  "Bearer a b",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			seen, err := run(t, auth, http.MethodGet, header)
			assertStatus(t, err, http.StatusUnauthorized)
			assert.Empty(t, seen)
		})
	}
}

func TestAuthRejectsNonHMAC(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{ID: "u-1"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = run(t, NewAuthMiddleware(secret).Middleware(), http.MethodGet, "Bearer "+s)
	assertStatus(t, err, http.StatusUnauthorized)
}

type fakeGate struct {
	allowed map[string]bool
	calls   []string
}

func (g *fakeGate) Authorize(ctx context.Context, userID, capability, action string) error {
	g.calls = append(g.calls, userID+":"+capability+"."+action)
	if g.allowed[userID] {
		return nil
	}
	return apperr.Forbidden("denied")
}

func withUser(id string, mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(userIDKey, id)
			return mw(next)(c)
		}
	}
}

func TestRequirePermission(t *testing.T) {
	gate := &fakeGate{allowed: map[string]bool{"admin": true}}
	mw := RequirePermission(gate, "ROLE_MANAGEMENT", "UPDATE")

	seen, err := run(t, withUser("admin", mw), http.MethodGet, "")
	require.NoError(t, err)
	assert.Equal(t, "admin", seen)

	_, err = run(t, withUser("user", mw), http.MethodGet, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, []string{"admin:ROLE_MANAGEMENT.UPDATE", "user:ROLE_MANAGEMENT.UPDATE"}, gate.calls)
}

type fakeLimiter struct {
	allow bool
	err   error
	hits  []string
}

func (l *fakeLimiter) Allow(ctx context.Context, id string) (bool, error) {
	l.hits = append(l.hits, id)
	return l.allow, l.err
}

func TestRateLimit(t *testing.T) {
	denied := &fakeLimiter{allow: false}
	_, err := run(t, withUser("admin", RateLimit(denied)), http.MethodPut, "")
	assertStatus(t, err, http.StatusTooManyRequests)
	assert.Equal(t, []string{"admin"}, denied.hits)

	_, err = run(t, withUser("admin", RateLimit(denied)), http.MethodGet, "")
	require.NoError(t, err, "reads are not limited")
	assert.Len(t, denied.hits, 1)

	broken := &fakeLimiter{err: errors.New("redis down")}
	_, err = run(t, withUser("admin", RateLimit(broken)), http.MethodDelete, "")
	assert.NoError(t, err, "limiter failures fail open")

	allowed := &fakeLimiter{allow: true}
	_, err = run(t, withUser("admin", RateLimit(allowed)), http.MethodPatch, "")
	assert.NoError(t, err)
}
