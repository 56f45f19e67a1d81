// Package models defines data structures used across the application.
// File: models/schedule.go
package models

// ----------------------- shift labels -----------------------

// The three fixed duty shifts on the roster.
const (
	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"
	ShiftEvening   = "evening"
)

// Shifts lists the valid shift labels in display order.
var Shifts = []string{ShiftMorning, ShiftAfternoon, ShiftEvening}

// ValidShift reports whether shift is one of the three fixed labels.
func ValidShift(shift string) bool {
	for _, s := range Shifts {
		if s == shift {
			return true
		}
	}
	return false
}

// ----------------------- schedule model -----------------------

// Schedule is one duty slot on the roster. StudentEmail is informational
// only; nothing ties a schedule to the session user beyond it.
type Schedule struct {
	ID           string `json:"id"`
	Date         string `json:"date"` // YYYY-MM-DD
	Shift        string `json:"shift"`
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
	Confirmed    bool   `json:"confirmed,omitempty"`
	ConfirmedBy  string `json:"confirmedBy,omitempty"`
	ConfirmedAt  string `json:"confirmedAt,omitempty"` // ISO-8601
}
