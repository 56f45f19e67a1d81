// File: controllers/manager_controller.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fme-portal/logger"
	"fme-portal/middleware"
	"fme-portal/services"
	"fme-portal/websocket"
)

// ManagerController serves the admin views: the submitted-report archive and
// the duty roster.
type ManagerController struct {
	Reports   services.ReportServiceInterface
	Schedules services.ScheduleServiceInterface
}

// NewManagerController constructs the controller, injecting needed services.
func NewManagerController(reports services.ReportServiceInterface, schedules services.ScheduleServiceInterface) *ManagerController {
	return &ManagerController{Reports: reports, Schedules: schedules}
}

// ---- report archive ----

// ListReports renders the submitted list, narrowed by optional query filters.
func (mc *ManagerController) ListReports(c *gin.Context) {
	filter := services.ReportFilter{
		Submitter: c.Query("submitter"),
		DateFrom:  c.Query("from"),
		DateTo:    c.Query("to"),
	}

	reports, err := mc.Reports.Filter(filter)
	if err != nil {
		logger.Error.Printf("ListReports: %v", err)
		c.String(http.StatusInternalServerError, "Could not load reports")
		return
	}

	c.HTML(http.StatusOK, "report_manager.html", gin.H{
		"User":    middleware.CurrentSession(c),
		"Reports": reports,
		"Filter":  filter,
	})
}

// ExportReportsCSV downloads the submitted list as a CSV file.
func (mc *ManagerController) ExportReportsCSV(c *gin.Context) {
	data, err := mc.Reports.ExportCSV()
	if err != nil {
		logger.Error.Printf("ExportReportsCSV: %v", err)
		c.String(http.StatusInternalServerError, "Export failed")
		return
	}

	filename := "duty-reports-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ExportReportsJSON downloads the submitted list as a JSON file.
func (mc *ManagerController) ExportReportsJSON(c *gin.Context) {
	data, err := mc.Reports.ExportJSON()
	if err != nil {
		logger.Error.Printf("ExportReportsJSON: %v", err)
		c.String(http.StatusInternalServerError, "Export failed")
		return
	}

	filename := "duty-reports-" + time.Now().UTC().Format("2006-01-02") + ".json"
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, "application/json", data)
}

// DeleteReport removes one submitted report and notifies manager clients.
func (mc *ManagerController) DeleteReport(c *gin.Context) {
	id := c.Param("id")
	if err := mc.Reports.Delete(id); err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		logger.Error.Printf("DeleteReport: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed"})
		return
	}

	websocket.NotifyReportDeleted(id)
	logger.Info.Printf("DeleteReport: report %s deleted by %s", id, middleware.CurrentSession(c).Email)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ---- duty roster ----

// ListSchedules renders the full roster for the manager.
func (mc *ManagerController) ListSchedules(c *gin.Context) {
	schedules, err := mc.Schedules.All()
	if err != nil {
		logger.Error.Printf("ListSchedules: %v", err)
		c.String(http.StatusInternalServerError, "Could not load roster")
		return
	}

	c.HTML(http.StatusOK, "schedule_manager.html", gin.H{
		"User":      middleware.CurrentSession(c),
		"Schedules": schedules,
	})
}

// CreateSchedule adds a roster slot on behalf of a member.
func (mc *ManagerController) CreateSchedule(c *gin.Context) {
	schedule, err := mc.Schedules.Create(
		c.PostForm("date"),
		c.PostForm("shift"),
		c.PostForm("studentName"),
		c.PostForm("studentEmail"),
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDate), errors.Is(err, services.ErrInvalidShift):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrSlotTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error.Printf("CreateSchedule: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create schedule"})
		}
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// ConfirmSchedule marks a slot as confirmed and broadcasts the change.
func (mc *ManagerController) ConfirmSchedule(c *gin.Context) {
	id := c.Param("id")
	admin := middleware.CurrentSession(c)

	if err := mc.Schedules.Confirm(id, admin.Email); err != nil {
		if errors.Is(err, services.ErrScheduleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
			return
		}
		logger.Error.Printf("ConfirmSchedule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Confirm failed"})
		return
	}

	schedules, err := mc.Schedules.All()
	if err == nil {
		for _, s := range schedules {
			if s.ID == id {
				websocket.NotifyScheduleConfirmed(s)
				break
			}
		}
	}

	logger.Info.Printf("ConfirmSchedule: %s confirmed by %s", id, admin.Email)
	c.JSON(http.StatusOK, gin.H{"confirmed": id})
}

// DeleteSchedule removes a roster slot.
func (mc *ManagerController) DeleteSchedule(c *gin.Context) {
	id := c.Param("id")
	if err := mc.Schedules.Delete(id); err != nil {
		if errors.Is(err, services.ErrScheduleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
			return
		}
		logger.Error.Printf("DeleteSchedule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
