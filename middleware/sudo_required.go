// File: middleware/sudo_required.go
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"fme-portal/logger"
)

// SudoRequired ensures the operator console has been unlocked for this session.
func SudoRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		isSudo, ok := session.Get(SessionKeySudo).(bool)

		if !ok || !isSudo {
			logger.Warn.Println("SudoRequired: operator console locked; blocking access")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Operator privileges required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
