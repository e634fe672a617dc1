package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ilaif/athena-cycle/internal/auth"
)

const claimsKey = "auth.claims"

// RequireBearer protects /api and /swagger with HS256 tokens. Health probes
// stay open. A nil verifier disables the check.
func RequireBearer(verifier *auth.JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		p := c.Request.URL.Path
		if p == "/healthz" || p == "/readyz" {
			c.Next()
			return
		}
		if !strings.HasPrefix(p, "/api/") && !strings.HasPrefix(p, "/swagger") {
			c.Next()
			return
		}
		tok := auth.BearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiResponse{Code: http.StatusUnauthorized, Message: "missing bearer token"})
			return
		}
		claims, err := verifier.Verify(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiResponse{Code: http.StatusUnauthorized, Message: "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}
