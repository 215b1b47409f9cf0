package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/attarco/attar-backend/pkg/auth"
	"github.com/attarco/attar-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "attar-test"}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.NewAccessToken(cfg, userID, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsUserID(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	token := mintTestToken(t, cfg, userID)

	var captured string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured != userID.String() {
		t.Fatalf("expected user %s got %q", userID, captured)
	}
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	var captured string
	handler := OptionalAuth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured != "" {
		t.Fatalf("expected empty user id got %q", captured)
	}
}

func TestOptionalAuthRejectsBadToken(t *testing.T) {
	handler := OptionalAuth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOptionalAuthSeedsUserID(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	token := mintTestToken(t, cfg, userID)

	var captured string
	handler := OptionalAuth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if captured != userID.String() {
		t.Fatalf("expected user %s got %q", userID, captured)
	}
}

func TestSessionSeedsSessionID(t *testing.T) {
	var captured string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(sessionIDHeader, "sess-42")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if captured != "sess-42" {
		t.Fatalf("expected session id got %q", captured)
	}
}

func TestSessionIgnoresBlankHeader(t *testing.T) {
	var captured string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(sessionIDHeader, "   ")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if captured != "" {
		t.Fatalf("expected empty session id got %q", captured)
	}
}
