package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	subjectKey = "auth.subject"
	roleKey    = "auth.role"

	// RoleAdmin grants access to catalog writes.
	RoleAdmin = "admin"
)

// AuthOptions configures AdminAuth. Issuer and Audience are checked only
// when set.
type AuthOptions struct {
	Secret   string
	Issuer   string
	Audience string
}

type portalClaims struct {
	jwt.RegisteredClaims
	Role        string         `json:"role"`
	AppMetadata map[string]any `json:"app_metadata"`
}

// appRole prefers app_metadata.role over the top-level role claim, which
// identity providers tend to fill with their own values.
func (c *portalClaims) appRole() string {
	if c.AppMetadata != nil {
		if s, ok := c.AppMetadata["role"].(string); ok && s != "" {
			return s
		}
	}
	return c.Role
}

// AdminAuth validates an HS256 bearer token and stores its subject and role
// on the context. Any failure aborts with 401.
func AdminAuth(opt AuthOptions) gin.HandlerFunc {
	secret := []byte(opt.Secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		if len(secret) == 0 {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "authentication is not configured")
			return
		}

		raw, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		raw = strings.TrimSpace(raw)
		if !found || raw == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		claims := &portalClaims{}
		tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil || tok == nil || !tok.Valid {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		if opt.Issuer != "" && claims.Issuer != opt.Issuer {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid token issuer")
			return
		}
		if opt.Audience != "" && !slices.Contains(claims.Audience, opt.Audience) {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "invalid token audience")
			return
		}
		if claims.Subject == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "missing subject")
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Set(roleKey, claims.appRole())
		c.Next()
	}
}

// RequireRole aborts with 403 unless AdminAuth stored one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if role := Role(c); role == "" || !slices.Contains(roles, role) {
			abortAuth(c, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		c.Next()
	}
}

// Subject returns the authenticated subject, or "" outside AdminAuth.
func Subject(c *gin.Context) string { return c.GetString(subjectKey) }

// Role returns the authenticated role, or "".
func Role(c *gin.Context) string { return c.GetString(roleKey) }

func abortAuth(c *gin.Context, status int, code, msg string) {
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="admin"`)
	}
	abortJSON(c, status, code, msg)
}
