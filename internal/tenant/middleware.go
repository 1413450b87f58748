package tenant

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const contextKey = "tenantID"

// Middleware resolves the tenant for every request and aborts with 403 when
// the host/path combination is not authorized. It runs after authentication
// so the user's tenant claim (if any) is already in the context.
func Middleware(resolver *Resolver, allowPublic bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claim := c.GetString("userTenant")

		tenantID, err := resolver.Resolve(c.Request.Host, c.Request.URL.Path, claim, allowPublic)
		if err != nil {
			var resErr *ResolutionError
			if errors.As(err, &resErr) {
				slog.Warn("tenant resolution rejected request",
					"request_id", c.GetString("requestID"),
					"host", c.Request.Host,
					"path", c.Request.URL.Path)
				c.JSON(http.StatusForbidden, gin.H{"error": "host not authorized"})
				c.Abort()
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant resolution failed"})
			c.Abort()
			return
		}

		c.Set(contextKey, tenantID)
		c.Next()
	}
}

// FromContext returns the resolved tenant for the request.
func FromContext(c *gin.Context) (string, bool) {
	tenantID := c.GetString(contextKey)
	return tenantID, tenantID != ""
}
