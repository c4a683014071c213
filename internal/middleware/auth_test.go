package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storyquiz/backend/internal/auth"
)

func signedToken(t *testing.T, userID int64, key []byte, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     exp.Unix(),
		"iat":     time.Now().Unix(),
	})
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func captureUserID() (http.Handler, *int64, *bool) {
	var uid int64
	var present bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, present = r.Context().Value("user_id").(int64)
		w.WriteHeader(http.StatusOK)
	})
	return h, &uid, &present
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	inner, uid, present := captureUserID()
	h := AuthMiddleware(inner)

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, 42, auth.JWTSecret, time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !*present || *uid != 42 {
		t.Errorf("user_id = %d (present=%v), want 42", *uid, *present)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong key", "Bearer " + signedToken(t, 42, []byte("other-key"), time.Now().Add(time.Hour))},
		{"expired", "Bearer " + signedToken(t, 42, auth.JWTSecret, time.Now().Add(-time.Hour))},
	}

	for _, c := range cases {
		inner, _, present := captureUserID()
		h := AuthMiddleware(inner)

		req := httptest.NewRequest("GET", "/x", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", c.name, rec.Code)
		}
		if *present {
			t.Errorf("%s: handler must not run", c.name)
		}
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	// Anonymous request passes through without a user ID.
	inner, _, present := captureUserID()
	h := OptionalAuthMiddleware(inner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/x", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous: status = %d, want 200", rec.Code)
	}
	if *present {
		t.Error("anonymous: no user_id expected")
	}

	// Valid token attaches the user ID.
	inner, uid, present := captureUserID()
	h = OptionalAuthMiddleware(inner)

	req := httptest.NewRequest("POST", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, 7, auth.JWTSecret, time.Now().Add(time.Hour)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !*present || *uid != 7 {
		t.Errorf("user_id = %d (present=%v), want 7", *uid, *present)
	}

	// Invalid token is treated as anonymous, not rejected.
	inner, _, present = captureUserID()
	h = OptionalAuthMiddleware(inner)

	req = httptest.NewRequest("POST", "/x", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("invalid token: status = %d, want 200", rec.Code)
	}
	if *present {
		t.Error("invalid token: no user_id expected")
	}
}
