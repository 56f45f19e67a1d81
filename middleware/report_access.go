// File: middleware/report_access.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fme-portal/logger"
	"fme-portal/services"
)

// ReportAccessRequired gates the duty-report workflow. Access is granted to
// admins, to the bootstrap duty manager, and to accounts with an explicit
// report grant; everyone else signed in gets a 403, anonymous requests are
// sent to sign-in.
func ReportAccessRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess.IsZero() {
			c.Redirect(http.StatusFound, "/signin")
			c.Abort()
			return
		}

		if !services.CanAccessReports(sess) {
			logger.Warn.Printf("ReportAccessRequired - %s blocked on %s", sess.Email, c.Request.URL.Path)
			c.JSON(http.StatusForbidden, gin.H{"error": "Report access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
