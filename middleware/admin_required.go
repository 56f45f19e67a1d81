// file: middleware/admin_required.go
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"fme-portal/logger"
)

// AdminRequired blocks requests whose session does not carry the admin role.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		isAdmin, ok := session.Get(SessionKeyIsAdmin).(bool)

		logger.Debug.Printf("AdminRequired - isAdmin=%v, ok=%v", isAdmin, ok)

		if !ok || !isAdmin {
			logger.Warn.Printf("AdminRequired - unauthorized attempt on %s blocked", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
