// Package models defines data structures used across the application.
// File: models/report.go
package models

// ----------------------- report status -----------------------

// A report is a draft until it is submitted; submitted is terminal.
const (
	ReportStatusDraft     = "draft"
	ReportStatusSubmitted = "submitted"
)

// ----------------------- duty report model -----------------------

// DutyReport is a duty report. While Status is draft it lives alone in the
// draft slot; on submission it is stamped and appended to the submitted list.
// Images holds attachment references ("blob:<uuid>") into the in-memory blob
// table; the bytes behind them do not survive a restart, which is the
// deliberate non-durability of local-only attachments.
type DutyReport struct {
	ID          string   `json:"id,omitempty"`
	ScheduleID  string   `json:"scheduleId,omitempty"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Tasks       string   `json:"tasks"`
	Incidents   string   `json:"incidents"`
	Notes       string   `json:"notes"`
	Date        string   `json:"date"` // YYYY-MM-DD
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Images      []string `json:"images,omitempty"`
	Status      string   `json:"status"`
	SubmittedBy string   `json:"submittedBy,omitempty"`
	SubmittedAt string   `json:"submittedAt,omitempty"` // ISO-8601
}

// EmptyDraft returns a fresh draft report.
func EmptyDraft() DutyReport {
	return DutyReport{Status: ReportStatusDraft}
}

// MergeDraft overlays a persisted draft onto an empty report: persisted
// non-empty fields win, everything else keeps its zero value.
func MergeDraft(saved DutyReport) DutyReport {
	r := EmptyDraft()
	if saved.Title != "" {
		r.Title = saved.Title
	}
	if saved.Summary != "" {
		r.Summary = saved.Summary
	}
	if saved.Tasks != "" {
		r.Tasks = saved.Tasks
	}
	if saved.Incidents != "" {
		r.Incidents = saved.Incidents
	}
	if saved.Notes != "" {
		r.Notes = saved.Notes
	}
	if saved.Date != "" {
		r.Date = saved.Date
	}
	if saved.StartTime != "" {
		r.StartTime = saved.StartTime
	}
	if saved.EndTime != "" {
		r.EndTime = saved.EndTime
	}
	if saved.ScheduleID != "" {
		r.ScheduleID = saved.ScheduleID
	}
	if len(saved.Images) > 0 {
		r.Images = append(r.Images, saved.Images...)
	}
	return r
}
