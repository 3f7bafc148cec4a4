package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
)

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok, "user id not in context")
		assert.Equal(t, int64(42), id)

		role, ok := GetRoleFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, model.RoleClient, role)
	})

	w := httptest.NewRecorder()
	_, err := m.SetAuthCookie(w, 42, model.RoleClient)
	require.NoError(t, err)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "no cookies set by SetAuthCookie")

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(cookies[0])

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, nextCalled, "next handler was not called")
}

func TestAuthMiddleware_WithBearerToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	token, err := m.IssueToken(7, model.RoleAdmin)
	require.NoError(t, err)

	var gotRole model.Role
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole, _ = GetRoleFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	m.Middleware(next).ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.RoleAdmin, gotRole)
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)
	other := NewAuthMiddleware("other-secret", time.Hour)

	foreign, err := other.IssueToken(1, model.RoleAdmin)
	require.NoError(t, err)

	expired := NewAuthMiddleware("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.IssueToken(1, model.RoleClient)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no token"},
		{name: "garbage", header: "Bearer not-a-jwt"},
		{name: "foreign signature", header: "Bearer " + foreign},
		{name: "expired", header: "Bearer " + stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			m.Middleware(next).ServeHTTP(w, r)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireRole(model.RoleAdmin)(next)

	tests := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{
			name: "anonymous",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodGet, "/admin", nil) },
			want: http.StatusUnauthorized,
		},
		{
			name: "client",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/admin", nil)
				return r.WithContext(WithUser(r.Context(), 1, model.RoleClient))
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "admin",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/admin", nil)
				return r.WithContext(WithUser(r.Context(), 1, model.RoleAdmin))
			},
			want: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, tt.req())
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestClearAuthCookie(t *testing.T) {
	m := NewAuthMiddleware("", 0)
	w := httptest.NewRecorder()

	m.ClearAuthCookie(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authCookieName, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}
