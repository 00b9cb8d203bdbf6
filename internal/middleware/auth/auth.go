package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"crm-orders/http-server/response"
	"crm-orders/internal/constants"
)

var ErrUnknownRole = errors.New("unknown role")

// Claims: полезная нагрузка токена панели: роль плюс стандартные поля.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// NewToken подписывает HS256-токен для роли.
func NewToken(secret, subject, role string, ttl time.Duration) (string, error) {
	const op = "auth.NewToken"

	if !slices.Contains(constants.Roles, role) {
		return "", fmt.Errorf("%s: %w: %q", op, ErrUnknownRole, role)
	}

	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Authenticate проверяет Bearer-токен и кладёт Claims в контекст запроса.
func Authenticate(log *slog.Logger, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.auth.Authenticate"

			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				response.Error(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}

			var claims Claims
			_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				log.Warn("invalid token",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("error", err.Error()),
				)
				response.Error(w, r, http.StatusUnauthorized, "invalid token")
				return
			}

			if !slices.Contains(constants.Roles, claims.Role) {
				response.Error(w, r, http.StatusForbidden, "unknown role")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, &claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// RequireRole пропускает владельца базового пути /api/{role} и admin.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}

			if claims.Role != role && claims.Role != constants.RoleAdmin {
				response.Error(w, r, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Permit ограничивает эндпоинт ролями; admin проходит всегда.
func Permit(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}

			if claims.Role != constants.RoleAdmin && !slices.Contains(roles, claims.Role) {
				response.Error(w, r, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
