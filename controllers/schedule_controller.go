// File: controllers/schedule_controller.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"fme-portal/logger"
	"fme-portal/middleware"
	"fme-portal/models"
	"fme-portal/services"
)

// ScheduleController serves duty-shift sign-up for team members.
type ScheduleController struct {
	Schedules services.ScheduleServiceInterface
	AllowList []string
}

// NewScheduleController constructs the controller. The allow list names the
// duty-team emails permitted to register for shifts.
func NewScheduleController(schedules services.ScheduleServiceInterface, allowList []string) *ScheduleController {
	return &ScheduleController{Schedules: schedules, AllowList: allowList}
}

// ShowSignup renders the shift sign-up page with the member's own slots.
func (sc *ScheduleController) ShowSignup(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if !services.CanRegisterShift(sess, sc.AllowList) {
		c.HTML(http.StatusForbidden, "duty_signup.html", gin.H{
			"User":  sess,
			"Error": "You are not on the duty team.",
		})
		return
	}

	mine, err := sc.Schedules.ForEmail(sess.Email)
	if err != nil {
		logger.Error.Printf("ShowSignup: loading schedules: %v", err)
	}
	c.HTML(http.StatusOK, "duty_signup.html", gin.H{
		"User":      sess,
		"Schedules": mine,
		"Shifts":    models.Shifts,
	})
}

// PerformSignup registers the signed-in member for a date and shift.
func (sc *ScheduleController) PerformSignup(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if !services.CanRegisterShift(sess, sc.AllowList) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not on the duty team"})
		return
	}

	date := c.PostForm("date")
	shift := c.PostForm("shift")

	schedule, err := sc.Schedules.Create(date, shift, sess.Name, sess.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDate), errors.Is(err, services.ErrInvalidShift):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrSlotTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error.Printf("PerformSignup: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not register shift"})
		}
		return
	}

	logger.Info.Printf("PerformSignup: %s signed up for %s %s", sess.Email, schedule.Date, schedule.Shift)
	c.JSON(http.StatusOK, schedule)
}

// MySchedules lists the signed-in member's duty slots.
func (sc *ScheduleController) MySchedules(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	mine, err := sc.Schedules.ForEmail(sess.Email)
	if err != nil {
		logger.Error.Printf("MySchedules: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load schedules"})
		return
	}
	c.JSON(http.StatusOK, mine)
}

// GetSignupQRCode serves a PNG QR code pointing at the sign-up page, for
// pinning on the duty-room notice board.
func (sc *ScheduleController) GetSignupQRCode(c *gin.Context) {
	qrBytes, err := services.GenerateShiftSignupQR(300, services.QREncoder(qrcode.Encode))
	if err != nil {
		logger.Error.Printf("GetSignupQRCode: %v", err)
		c.String(http.StatusInternalServerError, "QR generation failed")
		return
	}

	c.Header("Content-Disposition", "inline; filename=\"duty-signup.png\"")
	c.Data(http.StatusOK, "image/png", qrBytes)
}
