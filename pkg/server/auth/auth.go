// Package auth resolves the caller's identity from a bearer token.
// The engine itself never derives identity from request parameters;
// everything downstream trusts the principal this package puts on the
// request context.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
)

const principalKey = "auth.principal"

// Claims are the token claims the server cares about. The subject is
// the user ID.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request.
type Principal struct {
	ID       string
	Username string
}

// ValidateToken parses and verifies an HS256 bearer token.
func ValidateToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Middleware extracts and verifies the Authorization header, storing
// the resulting principal on the gin context. Requests without a
// valid token are rejected with 401.
func Middleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthenticated(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthenticated(c, "authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := ValidateToken(parts[1], secret)
		if err != nil {
			abortUnauthenticated(c, "invalid or expired token")
			return
		}

		c.Set(principalKey, &Principal{
			ID:       claims.Subject,
			Username: claims.Username,
		})
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated caller. It must only
// be called on routes behind Middleware.
func PrincipalFromContext(c *gin.Context) *Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return &Principal{}
}

func abortUnauthenticated(c *gin.Context, reason string) {
	serverErr := serverErrors.NewUnauthenticatedError(reason)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   serverErr.ErrorCode,
		"message": serverErr.Message,
	})
}
