package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	const (
		validSecret   = "test-secret"
		invalidSecret = "wrong-secret"
		userID        = "ops"
	)

	generateToken := func(secret string, expiresAt time.Time) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": userID,
			"exp": expiresAt.Unix(),
		})
		tokenString, _ := token.SignedString([]byte(secret))
		return tokenString
	}

	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
	}{
		{
			name:       "protected route valid token",
			method:     http.MethodPost,
			path:       "/api/employees",
			header:     "Bearer " + generateToken(validSecret, time.Now().Add(time.Hour)),
			wantStatus: http.StatusOK,
		},
		{
			name:       "protected route wrong secret",
			method:     http.MethodDelete,
			path:       "/api/employees/EMP0001",
			header:     "Bearer " + generateToken(invalidSecret, time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "protected route expired token",
			method:     http.MethodPatch,
			path:       "/api/employees/EMP0001",
			header:     "Bearer " + generateToken(validSecret, time.Now().Add(-time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "protected route missing header",
			method:     http.MethodPut,
			path:       "/api/employees/EMP0001/permissions",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "protected route without bearer prefix",
			method:     http.MethodPost,
			path:       "/api/employees",
			header:     generateToken(validSecret, time.Now().Add(time.Hour)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "read passes through",
			method:     http.MethodGet,
			path:       "/api/employees",
			wantStatus: http.StatusOK,
		},
		{
			name:       "catalog passes through",
			method:     http.MethodGet,
			path:       "/api/designations",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = Subject(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			handler := Middleware(validSecret)(next)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK && tt.header != "" {
				assert.Equal(t, userID, subject)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
			}
		})
	}
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	Middleware("")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/employees/EMP0001", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken("ops", "secret", time.Minute)
	require.NoError(t, err)

	claims, err := validateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "ops", claims["sub"])
	assert.Equal(t, Issuer, claims["iss"])

	_, err = validateToken(token, "other")
	assert.Error(t, err)

	_, err = GenerateToken("ops", "", time.Minute)
	assert.Error(t, err)
}

func TestWithSubject(t *testing.T) {
	assert.Empty(t, Subject(context.Background()))
	assert.Equal(t, "csv-import", Subject(WithSubject(context.Background(), "csv-import")))
}
