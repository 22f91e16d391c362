package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier struct{}

// Verify accepts tokens of the form "ok:<subject>".
func (stubVerifier) Verify(_ context.Context, raw string) (*utils.IdentityClaims, error) {
	if len(raw) > 3 && raw[:3] == "ok:" {
		return &utils.IdentityClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: raw[3:]}}, nil
	}
	return nil, errors.New("bad token")
}

type stubUsers map[string]*models.User

func (s stubUsers) ResolveIdentity(_ context.Context, claims *utils.IdentityClaims) (*models.User, error) {
	if u, ok := s[claims.Subject]; ok {
		return u, nil
	}
	return nil, errors.New("no such user")
}

var testUsers = stubUsers{
	"alice":   {ID: "u1", Username: "alice", Role: models.RoleUser, IsActive: true},
	"root":    {ID: "u2", Username: "root", Role: models.RoleAdmin, IsActive: true},
	"retired": {ID: "u3", Username: "retired", Role: models.RoleUser, IsActive: false},
}

func whoami(ctx *gin.Context) {
	if u := CurrentUser(ctx); u != nil {
		ctx.String(http.StatusOK, u.Username)
		return
	}
	ctx.String(http.StatusOK, "anonymous")
}

func serve(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env utils.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	return env.Error
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthRequired(stubVerifier{}, testUsers), whoami)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "unauthorized"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "unauthorized"},
		{"empty token", "Bearer   ", http.StatusUnauthorized, "unauthorized"},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, "unauthorized"},
		{"unknown user fails closed", "Bearer ok:ghost", http.StatusInternalServerError, "internal_error"},
		{"inactive user", "Bearer ok:retired", http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.header)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}

	w := serve(r, "bearer ok:alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuth(stubVerifier{}, testUsers), whoami)

	assert.Equal(t, "anonymous", serve(r, "").Body.String())
	assert.Equal(t, "anonymous", serve(r, "Bearer nope").Body.String())
	assert.Equal(t, "anonymous", serve(r, "Bearer ok:retired").Body.String())
	assert.Equal(t, "alice", serve(r, "Bearer ok:alice").Body.String())
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthRequired(stubVerifier{}, testUsers), RequireRole(models.RoleAdmin, models.RoleModerator), whoami)

	w := serve(r, "Bearer ok:alice")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorCode(t, w))

	w = serve(r, "Bearer ok:root")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "root", w.Body.String())

	bare := gin.New()
	bare.GET("/", RequireRole(models.RoleAdmin), whoami)
	assert.Equal(t, http.StatusUnauthorized, serve(bare, "").Code)
}
