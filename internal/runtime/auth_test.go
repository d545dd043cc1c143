package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func serveWithAuth(t *testing.T, secret []byte, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var subject string
	e.GET("/p", func(c echo.Context) error {
		subject, _ = SubjectFromContext(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}, EchoAuthMiddleware(secret))

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, subject
}

func TestEchoAuthMiddlewareAcceptsSignedToken(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := SignJWT("alice", secret, time.Minute)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	rec, sub := serveWithAuth(t, secret, "Bearer "+tok)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if sub != "alice" {
		t.Fatalf("expected subject alice, got %q", sub)
	}
}

func TestEchoAuthMiddlewareRejects(t *testing.T) {
	secret := []byte("s3cret")
	wrong, _ := SignJWT("alice", []byte("other"), time.Minute)
	expired, _ := SignJWT("alice", secret, -time.Minute)
	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}).SignedString(secret)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + wrong,
		"expired":      "Bearer " + expired,
		"no subject":   "Bearer " + noSub,
	} {
		rec, _ := serveWithAuth(t, secret, header)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}
