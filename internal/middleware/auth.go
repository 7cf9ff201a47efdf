package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tariff-service/internal/service"
	"tariff-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleViewer  = "viewer"

	principalKey = "principal"
)

// WriteRoles may change registries and tariffs
var WriteRoles = []string{RoleAdmin, RoleManager}

// Auth verifies HMAC-signed JWTs. Tokens carry the principal in "sub" and its role in "role".
type Auth struct {
	secret []byte
}

func NewAuth(secret []byte) *Auth {
	return &Auth{secret: secret}
}

// IssueToken signs a token for subject; used by operator tooling and tests
func (a *Auth) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates the token and returns its principal
func (a *Auth) Parse(tokenString string) (service.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return service.Principal{}, err
	}
	if !token.Valid {
		return service.Principal{}, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return service.Principal{}, errors.New("invalid token claims")
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return service.Principal{}, errors.New("role not found in token")
	}
	subject, _ := claims.GetSubject()
	if subject == "" {
		return service.Principal{}, errors.New("subject not found in token")
	}
	return service.Principal{Subject: subject, Role: role}, nil
}

// RequireRole validates the bearer token (or access_token cookie) and checks its role against allowedRoles
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		principal, err := a.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		if !HasRole(principal.Role, allowedRoles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

func HasRole(role string, allowed ...string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// PrincipalFrom returns the principal stored by RequireRole
func PrincipalFrom(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}

func bearerToken(c *gin.Context) (string, error) {
	// Try cookie first, fallback to Authorization header
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token, nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization is missing")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("Invalid authorization format. Expected 'Bearer <token>'")
	}
	return parts[1], nil
}
