// Package services contains the portal's business logic.
// File: services/report_service.go
package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fme-portal/logger"
	"fme-portal/models"
	"fme-portal/storage"
	"fme-portal/websocket"
)

// ---------------- errors ----------------

var (
	ErrReportInvalid    = errors.New("title and date are required")
	ErrLoginRequired    = errors.New("you must be signed in to submit a report")
	ErrNotPermitted     = errors.New("you are not permitted to submit duty reports")
	ErrSubmitInFlight   = errors.New("a submission is already in progress")
	ErrAlreadySubmitted = errors.New("this report was already submitted")
	ErrReportNotFound   = errors.New("report not found")
)

// PersistErrorPolicy decides what happens when a storage write fails during
// autosave or submission. The original site swallowed these silently; the
// default here still swallows but logs, and Propagate is available for
// callers that would rather fail loudly.
type PersistErrorPolicy int

const (
	SwallowAndLog PersistErrorPolicy = iota
	Propagate
)

// defaultAutosaveDebounce is how long after the last edit a draft snapshot
// is persisted.
const defaultAutosaveDebounce = 3 * time.Second

// ---------------- service interface ----------------

// ReportFilter narrows the submitted list. Zero fields are ignored. Dates
// compare lexicographically, which is exact for YYYY-MM-DD.
type ReportFilter struct {
	Submitter string
	DateFrom  string
	DateTo    string
}

// ReportServiceInterface manages per-user in-progress drafts and the
// append-only submitted list.
type ReportServiceInterface interface {
	OpenDraft(owner string) (*DraftEditor, error)
	All() ([]models.DutyReport, error)
	Filter(f ReportFilter) ([]models.DutyReport, error)
	ExportJSON() ([]byte, error)
	ExportCSV() ([]byte, error)
	Delete(id string) error
}

// ---------------- service implementation ----------------

// ReportService is the storage-backed implementation.
type ReportService struct {
	store  storage.Store
	policy PersistErrorPolicy

	// AutosaveDebounce is copied onto editors at OpenDraft. Tests shrink it.
	AutosaveDebounce time.Duration

	blobs blobTable
}

// NewReportService builds the service with the default autosave debounce
// and the swallow-and-log persistence policy.
func NewReportService(store storage.Store) *ReportService {
	return &ReportService{
		store:            store,
		policy:           SwallowAndLog,
		AutosaveDebounce: defaultAutosaveDebounce,
		blobs:            blobTable{refs: make(map[string][]byte)},
	}
}

// SetPersistErrorPolicy switches between swallowing and propagating storage
// write failures.
func (svc *ReportService) SetPersistErrorPolicy(p PersistErrorPolicy) { svc.policy = p }

// publishAutosaveWrite is swappable so tests can count metric emissions.
var publishAutosaveWrite = websocket.PublishAutosaveWrite

// persistDraft writes the given draft slot, honouring the persistence policy.
// The autosave metric counts writes that actually reached the store.
func (svc *ReportService) persistDraft(draftKey string, r models.DutyReport) error {
	if err := svc.store.Write(draftKey, r); err != nil {
		if svc.policy == Propagate {
			return err
		}
		logger.Error.Printf("[ReportService] draft write failed (swallowed): %v", err)
		return nil
	}
	publishAutosaveWrite()
	return nil
}

func (svc *ReportService) loadSubmitted() ([]models.DutyReport, error) {
	var list []models.DutyReport
	if err := svc.store.Read(storage.KeyReports, &list); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

// All returns the submitted list, newest last (append order).
func (svc *ReportService) All() ([]models.DutyReport, error) {
	return svc.loadSubmitted()
}

// Filter applies the submitter-substring and date-range criteria with AND
// semantics.
func (svc *ReportService) Filter(f ReportFilter) ([]models.DutyReport, error) {
	list, err := svc.loadSubmitted()
	if err != nil {
		return nil, err
	}
	var out []models.DutyReport
	for _, r := range list {
		if f.Submitter != "" && !strings.Contains(strings.ToLower(r.SubmittedBy), strings.ToLower(f.Submitter)) {
			continue
		}
		if f.DateFrom != "" && r.Date < f.DateFrom {
			continue
		}
		if f.DateTo != "" && r.Date > f.DateTo {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ExportJSON renders the submitted list as indented JSON.
func (svc *ReportService) ExportJSON() ([]byte, error) {
	list, err := svc.loadSubmitted()
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.DutyReport{}
	}
	return json.MarshalIndent(list, "", "  ")
}

// ExportCSV renders the submitted list as CSV with a fixed column order.
// Fields containing commas, quotes or newlines are quoted with inner quotes
// doubled (RFC 4180).
func (svc *ReportService) ExportCSV() ([]byte, error) {
	list, err := svc.loadSubmitted()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "scheduleId", "title", "date", "submittedBy", "submittedAt", "status"}); err != nil {
		return nil, err
	}
	for _, r := range list {
		row := []string{r.ID, r.ScheduleID, r.Title, r.Date, r.SubmittedBy, r.SubmittedAt, r.Status}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Delete removes a submitted report by id. Admin-only; the handler enforces
// that.
func (svc *ReportService) Delete(id string) error {
	list, err := svc.loadSubmitted()
	if err != nil {
		return err
	}
	for i, r := range list {
		if r.ID == id {
			list = append(list[:i], list[i+1:]...)
			return svc.store.Write(storage.KeyReports, list)
		}
	}
	return ErrReportNotFound
}

// ---------------- attachment blob table ----------------

// blobTable holds attachment bytes in memory, keyed by "blob:<uuid>" refs.
// Refs must be released when an image is removed or the owning editor
// closes; the bytes are gone after a restart by design.
type blobTable struct {
	mu   sync.Mutex
	refs map[string][]byte
}

func (b *blobTable) attach(data []byte) string {
	ref := "blob:" + uuid.NewString()
	b.mu.Lock()
	b.refs[ref] = data
	b.mu.Unlock()
	return ref
}

func (b *blobTable) release(ref string) {
	b.mu.Lock()
	delete(b.refs, ref)
	b.mu.Unlock()
}

// Blob returns the bytes behind a ref, for serving attachment previews.
func (svc *ReportService) Blob(ref string) ([]byte, bool) {
	svc.blobs.mu.Lock()
	defer svc.blobs.mu.Unlock()
	data, ok := svc.blobs.refs[ref]
	return data, ok
}

// blobCount is used by tests to check for leaks.
func (svc *ReportService) blobCount() int {
	svc.blobs.mu.Lock()
	defer svc.blobs.mu.Unlock()
	return len(svc.blobs.refs)
}
