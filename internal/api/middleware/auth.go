// Package middleware provides gin middleware for authentication, rate limiting and request logging.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/service/users"
)

// ContextKeyIdentity holds the authenticated users.Identity in the gin context.
const ContextKeyIdentity = "identity"

// Claims are the JWT claims issued by the identity provider.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 token and returns its claims. When issuer is
// non-empty the iss claim must match it.
func ParseToken(tokenString, secret, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Auth rejects requests without a valid bearer token and stores the caller's
// identity in the context.
func Auth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			abort(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := ParseToken(token, secret, issuer)
		if err != nil {
			_ = c.Error(err)
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		role := claims.Role
		if role == "" {
			role = models.RoleUser
		}
		c.Set(ContextKeyIdentity, users.Identity{
			ID:    claims.Subject,
			Email: claims.Email,
			Name:  claims.Name,
			Role:  role,
		})
		c.Next()
	}
}

// RequireRole allows the request only when the caller has one of roles.
// Auth must run first.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		for _, role := range roles {
			if id.Role == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "Insufficient privileges")
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c *gin.Context) (users.Identity, bool) {
	v, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return users.Identity{}, false
	}
	id, ok := v.(users.Identity)
	return id, ok
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
