// Package services contains the portal's business logic.
// File: services/authz.go
package services

import (
	"os"
	"strings"

	"fme-portal/models"
)

// ---------------- authorization gate ----------------

// The gate is a pure predicate over the current session. It keeps no state
// and is re-evaluated on every call.

// CanAccessReports reports whether the session may use the duty-report
// surfaces (submit a report, open the report manager). True when the session
// carries the admin role, the bootstrap student ID, or an explicit grant.
func CanAccessReports(s models.Session) bool {
	if s.IsZero() {
		return false
	}
	if s.IsAdmin() {
		return true
	}
	if s.StudentID != "" && s.StudentID == models.BootstrapAdminID() {
		return true
	}
	return s.CanAccessReports
}

// CanRegisterShift reports whether the session may register a duty shift.
// Everything CanAccessReports admits plus members of the duty-team
// allow-list.
func CanRegisterShift(s models.Session, allowList []string) bool {
	if CanAccessReports(s) {
		return true
	}
	for _, email := range allowList {
		if strings.EqualFold(strings.TrimSpace(email), s.Email) {
			return true
		}
	}
	return false
}

// DutyTeamAllowList reads the externally maintained allow-list from the
// DUTY_TEAM_EMAILS environment variable (comma-separated emails).
func DutyTeamAllowList() []string {
	raw := os.Getenv("DUTY_TEAM_EMAILS")
	if raw == "" {
		return nil
	}
	var list []string
	for _, e := range strings.Split(raw, ",") {
		if e = strings.TrimSpace(e); e != "" {
			list = append(list, e)
		}
	}
	return list
}
