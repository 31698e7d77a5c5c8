package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samadhan/models"
)

const testSecret = "unit-test-secret"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// captureCaller records the caller RequireAuth put in the request context.
func captureCaller(got *models.CallerContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller, ok := CallerFromContext(r.Context()); ok {
			*got = caller
		}
		w.WriteHeader(http.StatusOK)
	})
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ops/stats", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestRequireAuthExtractsTheCaller(t *testing.T) {
	m := NewAuthMiddleware(testSecret)
	var got models.CallerContext
	h := m.RequireAuth(captureCaller(&got))

	token := mintToken(t, testSecret, jwt.MapClaims{
		"user_id":       float64(301),
		"role":          "DEPT_HEAD",
		"department_id": float64(40),
		"exp":           time.Now().Add(time.Hour).Unix(),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(token))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleDeptHead, got.Role)
	require.NotNil(t, got.UserID)
	assert.Equal(t, int64(301), *got.UserID)
	require.NotNil(t, got.DepartmentID)
	assert.Equal(t, int64(40), *got.DepartmentID)
}

func TestRequireAuthRejectsMissingOrMalformedHeaders(t *testing.T) {
	m := NewAuthMiddleware(testSecret)
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/ops/stats", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsExpiredAndForgedTokens(t *testing.T) {
	m := NewAuthMiddleware(testSecret)
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	}))

	expired := mintToken(t, testSecret, jwt.MapClaims{
		"user_id": float64(101),
		"role":    "CITIZEN",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(expired))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged := mintToken(t, "some-other-secret", jwt.MapClaims{
		"user_id": float64(101),
		"role":    "CITIZEN",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(forged))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRefusesSystemTokens(t *testing.T) {
	m := NewAuthMiddleware(testSecret)
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("SYSTEM must never arrive over HTTP")
	}))

	token := mintToken(t, testSecret, jwt.MapClaims{
		"role": "SYSTEM",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsUnknownRolesWithAWellFormedBody(t *testing.T) {
	m := NewAuthMiddleware(testSecret)
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an unknown role")
	}))

	// The role claim is client-controlled; quotes in it must never reach
	// the response body.
	token := mintToken(t, testSecret, jwt.MapClaims{
		"user_id": float64(101),
		"role":    `CITIZEN","admin":true`,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(token))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Unauthorized", body["error"])
	msg, _ := body["message"].(string)
	assert.NotContains(t, msg, "admin")
}

func TestRequireRoleGatesByRole(t *testing.T) {
	m := NewAuthMiddleware(testSecret)
	gate := RequireRole(models.RoleAdmin, models.RoleSuperAdmin)
	ran := false
	h := m.RequireAuth(gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		w.WriteHeader(http.StatusOK)
	})))

	staff := mintToken(t, testSecret, jwt.MapClaims{
		"user_id": float64(201),
		"role":    "STAFF",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(staff))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, ran)

	admin := mintToken(t, testSecret, jwt.MapClaims{
		"user_id": float64(501),
		"role":    "ADMIN",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(admin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ran)
}

func TestRequireRoleWithoutAuthIsUnauthorized(t *testing.T) {
	gate := RequireRole(models.RoleAdmin)
	h := gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a caller")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
