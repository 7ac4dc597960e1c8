package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/meeting-coordinator/internal/application"
)

func TestRequireIdentity(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without identity headers", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name   string
			userID string
			email  string
		}{
			{name: "no headers"},
			{name: "missing email", userID: "u1"},
			{name: "missing user id", email: "u1@acme.example"},
			{name: "blank user id", userID: "   ", email: "u1@acme.example"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				handler := RequireIdentity(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called without an identity")
				}))

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.userID != "" {
					req.Header.Set("X-User-Id", tc.userID)
				}
				if tc.email != "" {
					req.Header.Set("X-User-Email", tc.email)
				}

				recorder := httptest.NewRecorder()
				handler.ServeHTTP(recorder, req)

				if recorder.Code != http.StatusUnauthorized {
					t.Fatalf("expected 401, got %d", recorder.Code)
				}
			})
		}
	})

	t.Run("attaches the principal to the request context", func(t *testing.T) {
		t.Parallel()

		var captured application.Principal
		handler := RequireIdentity(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = principal
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-User-Id", "u1")
		req.Header.Set("X-User-Email", "u1@acme.example")

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if captured.UserID != "u1" || captured.Email != "u1@acme.example" {
			t.Fatalf("unexpected principal: %#v", captured)
		}
	})
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	t.Parallel()

	called := false
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/anything", nil))

	if !called {
		t.Fatal("next handler was not invoked")
	}
	if recorder.Code != http.StatusTeapot {
		t.Fatalf("expected status to pass through, got %d", recorder.Code)
	}
}
