// Package identity guards operator routes with bearer tokens.
package identity

import (
	"net/http"
	"strings"

	"github.com/beka-birhanu/vinom-tiles/service/i"
	"github.com/gin-gonic/gin"
)

const (
	// ContextOperatorClaims is the key used to store operator claims in the Gin context.
	ContextOperatorClaims = "operatorClaims"

	// ClaimRole names the claim carrying the caller role.
	ClaimRole = "role"
	// RoleOperator may start and stop runs.
	RoleOperator = "operator"
)

// Authorize accepts requests whose bearer token decodes and carries role.
func Authorize(ts i.Tokenizer, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := ts.Decode(parts[1])
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		if got, _ := claims[ClaimRole].(string); got != role {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Set(ContextOperatorClaims, claims)
		c.Next()
	}
}

// OperatorClaims builds the claims of an operator token for subject.
func OperatorClaims(subject string) map[string]interface{} {
	return map[string]interface{}{
		"sub":     subject,
		ClaimRole: RoleOperator,
	}
}
