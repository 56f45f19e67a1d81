// Package services contains the portal's business logic.
// File: services/draft_editor.go
package services

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fme-portal/logger"
	"fme-portal/models"
	"fme-portal/storage"
)

// DraftEditor owns the single in-progress report while its view is open.
// Edits restart a single-shot debounce timer; when the timer fires the
// current snapshot is persisted to the draft slot. The editor also owns the
// refs of its attached images and must release them on removal, submission
// or Close.
type DraftEditor struct {
	svc      *ReportService
	draftKey string

	mu         sync.Mutex
	report     models.DutyReport
	timer      *time.Timer
	debounce   time.Duration
	closed     bool
	submitting bool
}

// UploadedImage is a file handed over by the picker or drag-drop, with its
// declared MIME type.
type UploadedImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

// OpenDraft merges the owner's persisted draft over an empty report and
// returns the editor for it. Every owner gets their own draft slot.
func (svc *ReportService) OpenDraft(owner string) (*DraftEditor, error) {
	draftKey := storage.DraftKey(owner)
	var saved models.DutyReport
	report := models.EmptyDraft()
	err := svc.store.Read(draftKey, &saved)
	switch {
	case err == nil:
		report = models.MergeDraft(saved)
	case err == storage.ErrKeyNotFound:
		// first open, nothing to merge
	default:
		if svc.policy == Propagate {
			return nil, err
		}
		logger.Error.Printf("[ReportService.OpenDraft] draft read failed (swallowed): %v", err)
	}

	return &DraftEditor{
		svc:      svc,
		draftKey: draftKey,
		report:   report,
		debounce: svc.AutosaveDebounce,
	}, nil
}

// Snapshot returns a copy of the current draft. The Images slice is copied
// too, so later RemoveImage calls cannot rewrite refs a caller holds.
func (e *DraftEditor) Snapshot() models.DutyReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	report := e.report
	report.Images = append([]string(nil), e.report.Images...)
	return report
}

// Edit applies a mutation to the draft and restarts the autosave debounce
// timer. Edits after Close are ignored.
func (e *DraftEditor) Edit(mutate func(*models.DutyReport)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.report.Status != models.ReportStatusDraft {
		return
	}
	mutate(&e.report)
	e.restartTimerLocked()
}

// restartTimerLocked arms the debounce timer, cancelling any pending run.
// Caller holds e.mu.
func (e *DraftEditor) restartTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, e.autosave)
}

// autosave persists the draft snapshot when the debounce window elapses.
func (e *DraftEditor) autosave() {
	e.mu.Lock()
	if e.closed || e.report.Status != models.ReportStatusDraft {
		e.mu.Unlock()
		return
	}
	snapshot := e.report
	e.mu.Unlock()

	if err := e.svc.persistDraft(e.draftKey, snapshot); err != nil {
		logger.Error.Printf("[DraftEditor.autosave] %v", err)
	}
}

// SaveDraft force-persists the draft immediately, regardless of the debounce
// timer, and cancels any pending autosave.
func (e *DraftEditor) SaveDraft() error {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	snapshot := e.report
	e.mu.Unlock()

	return e.svc.persistDraft(e.draftKey, snapshot)
}

// AttachImages keeps every file whose declared type is an image, storing its
// bytes in the blob table and appending the ref. Non-image files are
// silently skipped, which is not an error.
func (e *DraftEditor) AttachImages(files []UploadedImage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	attached := 0
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			logger.Debug.Printf("[DraftEditor.AttachImages] skipping non-image %q (%s)", f.Filename, f.ContentType)
			continue
		}
		e.report.Images = append(e.report.Images, e.svc.blobs.attach(f.Data))
		attached++
	}
	if attached > 0 {
		e.restartTimerLocked()
	}
}

// RemoveImage releases the blob at index and removes exactly that entry,
// keeping the rest in order. Out-of-range indexes are a no-op.
func (e *DraftEditor) RemoveImage(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.report.Images) {
		return
	}
	e.svc.blobs.release(e.report.Images[index])
	images := make([]string, 0, len(e.report.Images)-1)
	images = append(images, e.report.Images[:index]...)
	images = append(images, e.report.Images[index+1:]...)
	e.report.Images = images
	e.restartTimerLocked()
}

// Submit validates the draft, checks the session and the authorization gate,
// then stamps and appends the report to the submitted list and clears the
// draft slot. At most one submission may be in flight per draft.
func (e *DraftEditor) Submit(sess models.Session) (models.DutyReport, error) {
	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		return models.DutyReport{}, ErrSubmitInFlight
	}
	if e.closed {
		e.mu.Unlock()
		return models.DutyReport{}, ErrAlreadySubmitted
	}
	if e.report.Title == "" || e.report.Date == "" {
		e.mu.Unlock()
		return models.DutyReport{}, ErrReportInvalid
	}
	if sess.IsZero() {
		e.mu.Unlock()
		return models.DutyReport{}, ErrLoginRequired
	}
	if !CanAccessReports(sess) {
		e.mu.Unlock()
		return models.DutyReport{}, ErrNotPermitted
	}
	e.submitting = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	report := e.report
	e.mu.Unlock()

	report.ID = uuid.NewString()
	report.Status = models.ReportStatusSubmitted
	report.SubmittedBy = sess.Email
	report.SubmittedAt = time.Now().UTC().Format(time.RFC3339)

	err := e.svc.appendSubmitted(e.draftKey, report)

	e.mu.Lock()
	e.submitting = false
	if err == nil {
		// submitted is terminal: release attachments and mark the editor done
		for _, ref := range e.report.Images {
			e.svc.blobs.release(ref)
		}
		e.report = report
		e.closed = true
	}
	e.mu.Unlock()

	if err != nil {
		return models.DutyReport{}, err
	}
	logger.Info.Printf("[DraftEditor.Submit] report %s submitted by %s", report.ID, report.SubmittedBy)
	return report, nil
}

// appendSubmitted appends to the submitted list and clears the draft slot,
// honouring the persistence policy for write failures.
func (svc *ReportService) appendSubmitted(draftKey string, report models.DutyReport) error {
	list, err := svc.loadSubmitted()
	if err != nil {
		if svc.policy == Propagate {
			return err
		}
		logger.Error.Printf("[ReportService] submitted list read failed (swallowed): %v", err)
		list = nil
	}
	if err := svc.store.Write(storage.KeyReports, append(list, report)); err != nil {
		if svc.policy == Propagate {
			return err
		}
		logger.Error.Printf("[ReportService] submitted list write failed (swallowed): %v", err)
	}
	if err := svc.store.Delete(draftKey); err != nil {
		logger.Error.Printf("[ReportService] draft slot clear failed: %v", err)
	}
	return nil
}

// Close cancels any pending autosave and releases every attachment ref.
// Data already persisted by the last successful autosave is untouched.
// Idempotent.
func (e *DraftEditor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	for _, ref := range e.report.Images {
		e.svc.blobs.release(ref)
	}
	e.closed = true
}
