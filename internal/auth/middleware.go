package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bookcourier/courier-api/internal/apperr"
)

const principalKey = "auth.principal"

// RequireAuth rejects requests without a valid bearer token and stores the
// verified Principal on the gin context.
func RequireAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c)
			return
		}
		p, err := v.Verify(c.Request.Context(), parts[1])
		if err != nil {
			abortUnauthorized(c)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireAdmin rejects callers that are not admins. It must run after
// RequireAuth.
func RequireAdmin(a *Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			abortUnauthorized(c)
			return
		}
		if err := a.RequireAdmin(c.Request.Context(), p.Email); err != nil {
			status := apperr.Status(err)
			c.AbortWithStatusJSON(status, gin.H{"message": apperr.Message(err)})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the Principal stored by RequireAuth.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": apperr.ErrUnauthorized.Error()})
}
