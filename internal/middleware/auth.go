package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	AdminSubjectKey contextKey = "admin_subject"
	RequestIDKey    contextKey = "request_id"

	roleAdmin = "admin"
)

// AdminAuth guards the document administration routes with HS256 tokens
// carrying role=admin. With an empty secret every request passes.
type AdminAuth struct {
	Secret []byte
}

func NewAdminAuth(secret string) *AdminAuth {
	return &AdminAuth{Secret: []byte(secret)}
}

func (a *AdminAuth) Enabled() bool {
	return len(a.Secret) > 0
}

// GenerateToken signs an admin token for subject valid for ttl.
func (a *AdminAuth) GenerateToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": roleAdmin,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.Secret)
}

// GenerateAdminToken is GenerateToken for callers holding only the secret.
func GenerateAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	return NewAdminAuth(secret).GenerateToken(subject, ttl)
}

// Middleware validates the bearer token and attaches its subject to context
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.Secret, nil
		})
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token claims", r)
			return
		}

		if role, _ := claims["role"].(string); role != roleAdmin {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin role required", r)
			return
		}

		subject, _ := claims["sub"].(string)
		ctx := context.WithValue(r.Context(), AdminSubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAdminSubject returns the subject of the verified admin token, if any.
func GetAdminSubject(ctx context.Context) string {
	s, _ := ctx.Value(AdminSubjectKey).(string)
	return s
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(r.Context()),
		},
		"detail": message,
	})
}
