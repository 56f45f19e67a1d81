// File: middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"fme-portal/logger"
)

// -------------- authentication middleware --------------

// AuthRequired ensures the user is signed in.
// How it works:
// - Retrieves the session from the request context.
// - Checks if the "user" session variable is set.
// - If no user is found, redirects to "/signin" and aborts execution.
// - Otherwise, the request proceeds.
// Usage:
//
//	router.Use(AuthRequired)
func AuthRequired(c *gin.Context) {
	session := sessions.Default(c)
	user := session.Get(SessionKeyUser)

	// block request if user session is missing
	if user == nil {
		logger.Warn.Printf("AuthRequired: no user in session for %s", c.Request.URL.Path)
		c.Redirect(http.StatusFound, "/signin")
		c.Abort()
		return
	}

	logger.Debug.Println("[AuthRequired] user authenticated - proceeding with request")
	c.Next()
}
