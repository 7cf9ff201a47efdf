package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(auth *Auth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Metrics())
	router.POST("/write", auth.RequireRole(WriteRoles...), func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.String(http.StatusOK, p.Subject+"/"+p.Role)
	})
	return router
}

func TestRequireRole(t *testing.T) {
	auth := NewAuth([]byte("test-secret"))
	router := newAuthRouter(auth)

	manager, err := auth.IssueToken("bob", RoleManager, time.Hour)
	require.NoError(t, err)
	viewer, err := auth.IssueToken("eve", RoleViewer, time.Hour)
	require.NoError(t, err)
	expired, err := auth.IssueToken("bob", RoleAdmin, -time.Hour)
	require.NoError(t, err)
	forged, err := NewAuth([]byte("other-secret")).IssueToken("mallory", RoleAdmin, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"manager may write", "Bearer " + manager, http.StatusOK, "bob/manager"},
		{"viewer is forbidden", "Bearer " + viewer, http.StatusForbidden, ""},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong signature", "Bearer " + forged, http.StatusUnauthorized, ""},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"malformed header", "Token " + manager, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/write", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestRequireRoleAcceptsCookie(t *testing.T) {
	auth := NewAuth([]byte("test-secret"))
	router := newAuthRouter(auth)
	token, err := auth.IssueToken("carol", RoleAdmin, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "carol/admin", w.Body.String())
}

func TestParseRejectsTokenWithoutRole(t *testing.T) {
	secret := []byte("test-secret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "dave"}).SignedString(secret)
	require.NoError(t, err)

	_, err = NewAuth(secret).Parse(token)
	assert.Error(t, err)
}
