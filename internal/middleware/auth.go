// Package middleware содержит HTTP middleware маркетплейса.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
)

const (
	authCookieName = "auth_token"
	tokenIssuer    = "marketshop"
	defaultTTL     = 72 * time.Hour
)

var signingMethod = jwt.SigningMethodHS256

// Claims описывает полезную нагрузку токена авторизации.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет токен авторизации из cookie или заголовка Authorization.
type AuthMiddleware struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// Без ключа генерируется случайный: токены перестают действовать после перезапуска.
func NewAuthMiddleware(secret string, ttl time.Duration) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &AuthMiddleware{
		secretKey: key,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Middleware проверяет токен и добавляет идентификатор и роль пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		userID, role, err := a.ParseToken(token)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, roleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole пропускает запрос только для пользователя с указанной ролью.
// Анонимный запрос и запрос с недостаточной ролью получают 401. Должен подключаться после Middleware.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetUserIDFromContext(r.Context()); !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if got, _ := GetRoleFromContext(r.Context()); got != role {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IssueToken подписывает токен для пользователя.
func (a *AuthMiddleware) IssueToken(userID int64, role model.Role) (string, error) {
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена.
func (a *AuthMiddleware) ParseToken(token string) (int64, model.Role, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secretKey, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return 0, "", err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", errors.New("invalid token subject")
	}
	if !claims.Role.IsValid() {
		return 0, "", errors.New("invalid token role")
	}

	return userID, claims.Role, nil
}

// SetAuthCookie выпускает токен и устанавливает его в cookie авторизации. Токен также возвращается
// для клиентов, передающих его в заголовке Authorization.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, userID int64, role model.Role) (string, error) {
	token, err := a.IssueToken(userID, role)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		Expires:  a.now().Add(a.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return token, nil
}

// ClearAuthCookie удаляет cookie авторизации.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(authCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// GetRoleFromContext извлекает роль пользователя из контекста запроса.
func GetRoleFromContext(ctx context.Context) (model.Role, bool) {
	role, ok := ctx.Value(roleKey).(model.Role)
	return role, ok
}

// WithUser добавляет пользователя в контекст. Используется в тестах обработчиков.
func WithUser(ctx context.Context, userID int64, role model.Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}
