package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"classpulse/internal/service"
)

type contextKey string

const instructorIDKey contextKey = "instructorID"

// AuthMiddleware guards instructor-only routes
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireInstructor validates the bearer token and stores the instructor
// id in the request context.
func (m *AuthMiddleware) RequireInstructor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			unauthorized(w, "missing bearer token")
			return
		}

		claims, err := m.authSvc.ValidateToken(token)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), instructorIDKey, claims.InstructorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetInstructorID returns the authenticated instructor id, or "".
func GetInstructorID(ctx context.Context) string {
	id, _ := ctx.Value(instructorIDKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
