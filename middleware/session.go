// Package middleware provides request filters and security checks for the portal.
// File: middleware/session.go
package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"fme-portal/models"
)

// ---- session keys ----

const (
	SessionKeyUser       = "user"
	SessionKeyName       = "name"
	SessionKeyRole       = "role"
	SessionKeyStudentID  = "studentId"
	SessionKeyAvatar     = "avatar"
	SessionKeyReportFlag = "canAccessReports"
	SessionKeyIsAdmin    = "isAdmin"
	SessionKeySudo       = "sudo"
)

// CurrentSession rebuilds the signed-in account snapshot from the cookie
// session. A request without a "user" value yields a zero session.
func CurrentSession(c *gin.Context) models.Session {
	session := sessions.Default(c)

	email, ok := session.Get(SessionKeyUser).(string)
	if !ok || email == "" {
		return models.Session{}
	}

	s := models.Session{Email: email}
	if name, ok := session.Get(SessionKeyName).(string); ok {
		s.Name = name
	}
	if role, ok := session.Get(SessionKeyRole).(string); ok {
		s.Role = role
	}
	if id, ok := session.Get(SessionKeyStudentID).(string); ok {
		s.StudentID = id
	}
	if avatar, ok := session.Get(SessionKeyAvatar).(string); ok {
		s.Avatar = avatar
	}
	if grant, ok := session.Get(SessionKeyReportFlag).(bool); ok {
		s.CanAccessReports = grant
	}
	return s
}

// StoreSession writes the account snapshot into the cookie session.
func StoreSession(c *gin.Context, s models.Session) error {
	session := sessions.Default(c)
	session.Set(SessionKeyUser, s.Email)
	session.Set(SessionKeyName, s.Name)
	session.Set(SessionKeyRole, s.Role)
	session.Set(SessionKeyStudentID, s.StudentID)
	session.Set(SessionKeyAvatar, s.Avatar)
	session.Set(SessionKeyReportFlag, s.CanAccessReports)
	session.Set(SessionKeyIsAdmin, s.IsAdmin())
	return session.Save()
}

// ClearSession drops every session value, including the sudo flag.
func ClearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}
