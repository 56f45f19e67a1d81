// Package models defines data structures used across the application.
// File: models/account.go
package models

import (
	"fmt"
	"os"
	"regexp"
)

// ----------------------- roles -----------------------

// Role values stored on an account. There are only two.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultBootstrapAdminID is the student ID that is granted the admin role at
// account creation. It can be overridden with the BOOTSTRAP_ADMIN_ID
// environment variable.
const DefaultBootstrapAdminID = "23146053"

// BootstrapAdminID returns the privileged student ID. Role derivation happens
// once, at account creation; accounts keep whatever role they were created
// with even if this value later changes.
func BootstrapAdminID() string {
	if id := os.Getenv("BOOTSTRAP_ADMIN_ID"); id != "" {
		return id
	}
	return DefaultBootstrapAdminID
}

// DeriveRole maps a student ID to a role at account-creation time.
func DeriveRole(studentID string) string {
	if studentID == BootstrapAdminID() {
		return RoleAdmin
	}
	return RoleUser
}

// ----------------------- institutional email -----------------------

// DefaultStudentEmailDomain is used when STUDENT_EMAIL_DOMAIN is unset.
const DefaultStudentEmailDomain = "student.fme.edu.vn"

// StudentEmailPattern returns the regexp that institutional emails must match:
// a numeric student ID at the configured student domain.
func StudentEmailPattern() *regexp.Regexp {
	domain := os.Getenv("STUDENT_EMAIL_DOMAIN")
	if domain == "" {
		domain = DefaultStudentEmailDomain
	}
	return regexp.MustCompile(fmt.Sprintf(`^\d+@%s$`, regexp.QuoteMeta(domain)))
}

// IsStudentEmail reports whether the email matches the institutional pattern.
func IsStudentEmail(email string) bool {
	return StudentEmailPattern().MatchString(email)
}

// StudentIDFromEmail extracts the numeric student ID from an institutional
// email, or returns "" if the email does not match the pattern.
func StudentIDFromEmail(email string) string {
	m := regexp.MustCompile(`^(\d+)@`).FindStringSubmatch(email)
	if m == nil || !IsStudentEmail(email) {
		return ""
	}
	return m[1]
}

// ----------------------- account model -----------------------

// Account is a registered portal account. Identity key is Email; at most one
// account exists per email. Passwords are stored as entered: this is a
// demonstration-grade scheme carried over from the original site, not a
// security boundary.
type Account struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	StudentID string `json:"studentId,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// IsAdmin reports whether the account was created with the admin role.
func (a Account) IsAdmin() bool { return a.Role == RoleAdmin }

// ----------------------- session model -----------------------

// Session is the projection of the currently signed-in account. It is not the
// Account itself: profile and avatar mutations must be written back to both.
type Session struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	StudentID        string `json:"studentId,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	CanAccessReports bool   `json:"canAccessReports,omitempty"`
}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// IsZero reports whether no user is signed in.
func (s Session) IsZero() bool { return s.Email == "" }
