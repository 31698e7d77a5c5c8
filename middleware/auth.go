package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"samadhan/models"
)

type contextKey string

const callerKey contextKey = "caller"

// AuthMiddleware validates JWT tokens minted by the identity service and
// extracts the caller context. This system never issues tokens.
type AuthMiddleware struct {
	jwtSecret []byte
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: []byte(jwtSecret)}
}

// RequireAuth validates the bearer token and sets the caller in the request
// context. Tokens claiming the SYSTEM role are rejected; SYSTEM is reserved
// for in-process actors and never arrives over HTTP.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid authorization format. Expected: Bearer <token>")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid token claims")
			return
		}

		role, _ := claims["role"].(string)
		if models.Role(role) == models.RoleSystem {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "System tokens are not accepted")
			return
		}

		userIDFloat, ok := claims["user_id"].(float64)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid token: user_id not found")
			return
		}
		userID := int64(userIDFloat)

		caller := models.UserCaller(userID, models.Role(role))
		if deptFloat, ok := claims["department_id"].(float64); ok {
			deptID := int64(deptFloat)
			caller.DepartmentID = &deptID
		}

		if err := caller.Validate(); err != nil {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid token: unrecognized role")
			return
		}

		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route to the given roles. It must run after
// RequireAuth; a request with no caller in context is rejected.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
				return
			}
			for _, role := range roles {
				if caller.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondWithError(w, http.StatusForbidden, "Forbidden", "Insufficient role for this operation")
		})
	}
}

// CallerFromContext returns the caller set by RequireAuth.
func CallerFromContext(ctx context.Context) (models.CallerContext, bool) {
	caller, ok := ctx.Value(callerKey).(models.CallerContext)
	return caller, ok
}

// respondWithError writes a JSON error body without depending on the
// handler package's response helpers.
func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json := fmt.Sprintf(`{"error":"%s","message":"%s","code":%d}`, errorType, message, statusCode)
	w.Write([]byte(json))
}
