// File: controllers/report_controller.go
package controllers

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"fme-portal/logger"
	"fme-portal/middleware"
	"fme-portal/models"
	"fme-portal/services"
	"fme-portal/websocket"
)

// maxImageBytes caps a single attachment upload.
const maxImageBytes = 5 << 20

// ReportController drives the duty-report draft editor. One editor is kept
// per signed-in email so a user's autosave timer survives across requests.
type ReportController struct {
	Reports *services.ReportService

	mu      sync.Mutex
	editors map[string]*services.DraftEditor
}

// NewReportController constructs the controller.
func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{
		Reports: reports,
		editors: make(map[string]*services.DraftEditor),
	}
}

// editorFor returns the open editor for the session, opening one on demand.
// Each user edits their own draft slot.
func (rc *ReportController) editorFor(email string) (*services.DraftEditor, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if ed, ok := rc.editors[email]; ok {
		return ed, nil
	}
	ed, err := rc.Reports.OpenDraft(email)
	if err != nil {
		return nil, err
	}
	rc.editors[email] = ed
	return ed, nil
}

// dropEditor forgets the session's editor after submit or close.
func (rc *ReportController) dropEditor(email string) {
	rc.mu.Lock()
	delete(rc.editors, email)
	rc.mu.Unlock()
}

// ShowEditor renders the draft form, resuming any persisted draft.
func (rc *ReportController) ShowEditor(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ed, err := rc.editorFor(sess.Email)
	if err != nil {
		logger.Error.Printf("ShowEditor: opening draft: %v", err)
		c.String(http.StatusInternalServerError, "Could not open report draft")
		return
	}

	c.HTML(http.StatusOK, "report_editor.html", gin.H{
		"User":   sess,
		"Report": ed.Snapshot(),
	})
}

// Autosave applies a field edit; persistence happens after the debounce window.
func (rc *ReportController) Autosave(c *gin.Context) {
	var body struct {
		Title     string `json:"title"`
		Date      string `json:"date"`
		Summary   string `json:"summary"`
		Tasks     string `json:"tasks"`
		Incidents string `json:"incidents"`
		Notes     string `json:"notes"`
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft payload"})
		return
	}

	sess := middleware.CurrentSession(c)
	ed, err := rc.editorFor(sess.Email)
	if err != nil {
		logger.Error.Printf("Autosave: opening draft: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open draft"})
		return
	}

	ed.Edit(func(r *models.DutyReport) {
		r.Title = body.Title
		r.Date = body.Date
		r.Summary = body.Summary
		r.Tasks = body.Tasks
		r.Incidents = body.Incidents
		r.Notes = body.Notes
		r.StartTime = body.StartTime
		r.EndTime = body.EndTime
	})
	c.JSON(http.StatusOK, ed.Snapshot())
}

// SaveDraft persists immediately, bypassing the debounce window.
func (rc *ReportController) SaveDraft(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ed, err := rc.editorFor(sess.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open draft"})
		return
	}
	if err := ed.SaveDraft(); err != nil {
		logger.Error.Printf("SaveDraft: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save draft"})
		return
	}
	c.JSON(http.StatusOK, ed.Snapshot())
}

// UploadImages attaches posted image files to the draft. Non-image parts are
// skipped silently, matching the editor's attach semantics.
func (rc *ReportController) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	sess := middleware.CurrentSession(c)
	ed, err := rc.editorFor(sess.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open draft"})
		return
	}

	var uploads []services.UploadedImage
	for _, fh := range form.File["images"] {
		if fh.Size > maxImageBytes {
			logger.Warn.Printf("UploadImages: %s exceeds size cap, skipped", fh.Filename)
			continue
		}
		f, err := fh.Open()
		if err != nil {
			logger.Error.Printf("UploadImages: opening %s: %v", fh.Filename, err)
			continue
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			logger.Error.Printf("UploadImages: reading %s: %v", fh.Filename, err)
			continue
		}
		uploads = append(uploads, services.UploadedImage{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	ed.AttachImages(uploads)
	c.JSON(http.StatusOK, ed.Snapshot())
}

// RemoveImage detaches the image at the posted index.
func (rc *ReportController) RemoveImage(c *gin.Context) {
	var body struct {
		Index int `json:"index"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index is required"})
		return
	}

	sess := middleware.CurrentSession(c)
	ed, err := rc.editorFor(sess.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open draft"})
		return
	}

	ed.RemoveImage(body.Index)
	c.JSON(http.StatusOK, ed.Snapshot())
}

// ServeBlob streams an attached image back to the editor page.
func (rc *ReportController) ServeBlob(c *gin.Context) {
	ref := "blob:" + c.Param("id")
	data, ok := rc.Reports.Blob(ref)
	if !ok {
		c.String(http.StatusNotFound, "attachment not found")
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// Submit finalizes the draft into the submitted list and notifies managers.
func (rc *ReportController) Submit(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ed, err := rc.editorFor(sess.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open draft"})
		return
	}

	report, err := ed.Submit(sess)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReportInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title and date are required"})
		case errors.Is(err, services.ErrLoginRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in to submit a report"})
		case errors.Is(err, services.ErrNotPermitted):
			c.JSON(http.StatusForbidden, gin.H{"error": "Report access required"})
		case errors.Is(err, services.ErrSubmitInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "Submission already in progress"})
		case errors.Is(err, services.ErrAlreadySubmitted):
			c.JSON(http.StatusConflict, gin.H{"error": "Report already submitted"})
		default:
			logger.Error.Printf("Submit: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Submission failed"})
		}
		return
	}

	rc.dropEditor(sess.Email)
	websocket.NotifyReportSubmitted(report)
	websocket.PublishReportSubmitted()
	logger.Info.Printf("Submit: report %s submitted by %s", report.ID, sess.Email)
	c.JSON(http.StatusOK, report)
}

// CloseEditor abandons the in-memory editor; the persisted draft survives.
func (rc *ReportController) CloseEditor(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	rc.mu.Lock()
	ed, ok := rc.editors[sess.Email]
	delete(rc.editors, sess.Email)
	rc.mu.Unlock()

	if ok {
		ed.Close()
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}
