// File: services/report_service_test.go
package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fme-portal/models"
	"fme-portal/storage"
)

func newTestReportService(t *testing.T) (*ReportService, storage.Store) {
	store, err := storage.NewFileStoreFs(afero.NewMemMapFs(), "data")
	require.NoError(t, err)
	svc := NewReportService(store)
	svc.AutosaveDebounce = 30 * time.Millisecond
	return svc, store
}

func adminSession() models.Session {
	return models.Session{Email: "admin@student.fme.edu.vn", Role: models.RoleAdmin}
}

// draftOwner is the email whose draft slot the tests exercise.
const draftOwner = "admin@student.fme.edu.vn"

func draftRead(t *testing.T, store storage.Store) (models.DutyReport, error) {
	var r models.DutyReport
	err := store.Read(storage.DraftKey(draftOwner), &r)
	return r, err
}

func submittedLen(t *testing.T, store storage.Store) int {
	var list []models.DutyReport
	if err := store.Read(storage.KeyReports, &list); err != nil {
		return 0
	}
	return len(list)
}

// ---------------- draft lifecycle ----------------

// TestOpenDraft_MergesPersistedDraft verifies persisted fields overwrite the
// empty report on open.
func TestOpenDraft_MergesPersistedDraft(t *testing.T) {
	svc, store := newTestReportService(t)

	require.NoError(t, store.Write(storage.DraftKey(draftOwner), models.DutyReport{Title: "Evening shift", Date: "2026-03-01"}))

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	defer editor.Close()

	snap := editor.Snapshot()
	assert.Equal(t, "Evening shift", snap.Title)
	assert.Equal(t, "2026-03-01", snap.Date)
	assert.Equal(t, models.ReportStatusDraft, snap.Status)
}

// TestAutosave_DebouncePersistsAfterQuietPeriod verifies the snapshot written
// after the debounce window equals the last edit.
func TestAutosave_DebouncePersistsAfterQuietPeriod(t *testing.T) {
	svc, store := newTestReportService(t)

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	defer editor.Close()

	editor.Edit(func(r *models.DutyReport) { r.Title = "Morning shift" })

	assert.Eventually(t, func() bool {
		r, err := draftRead(t, store)
		return err == nil && r.Title == "Morning shift"
	}, time.Second, 5*time.Millisecond, "quiet period should trigger the autosave")
}

// TestAutosave_EditRestartsTimer verifies an edit inside the window restarts
// it, so no intermediate snapshot is persisted.
func TestAutosave_EditRestartsTimer(t *testing.T) {
	svc, store := newTestReportService(t)
	svc.AutosaveDebounce = 60 * time.Millisecond

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	defer editor.Close()

	editor.Edit(func(r *models.DutyReport) { r.Title = "first" })
	time.Sleep(30 * time.Millisecond)
	editor.Edit(func(r *models.DutyReport) { r.Title = "second" })
	time.Sleep(30 * time.Millisecond)

	// 60ms since the first edit but only 30ms since the second: nothing yet
	_, err = draftRead(t, store)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound, "restarted timer must not have fired")

	assert.Eventually(t, func() bool {
		r, err := draftRead(t, store)
		return err == nil && r.Title == "second"
	}, time.Second, 5*time.Millisecond, "only the final snapshot is persisted")
}

// TestAutosave_MetricCountsPersistedWrites verifies the autosave metric fires
// once per store write, not once per edit.
func TestAutosave_MetricCountsPersistedWrites(t *testing.T) {
	svc, _ := newTestReportService(t)

	var writes atomic.Int32
	original := publishAutosaveWrite
	publishAutosaveWrite = func() { writes.Add(1) }
	defer func() { publishAutosaveWrite = original }()

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	defer editor.Close()

	// three edits inside one debounce window collapse into one write
	editor.Edit(func(r *models.DutyReport) { r.Title = "a" })
	editor.Edit(func(r *models.DutyReport) { r.Title = "ab" })
	editor.Edit(func(r *models.DutyReport) { r.Title = "abc" })

	assert.Eventually(t, func() bool { return writes.Load() == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(2 * svc.AutosaveDebounce)
	assert.Equal(t, int32(1), writes.Load(), "no further writes without further edits")
}

// TestOpenDraft_SlotsAreScopedByOwner verifies one user's draft never leaks
// into another user's editor, and saves do not overwrite each other.
func TestOpenDraft_SlotsAreScopedByOwner(t *testing.T) {
	svc, store := newTestReportService(t)

	first, err := svc.OpenDraft("23146101@student.fme.edu.vn")
	require.NoError(t, err)
	defer first.Close()
	first.Edit(func(r *models.DutyReport) { r.Title = "First user's shift" })
	require.NoError(t, first.SaveDraft())

	second, err := svc.OpenDraft("23146102@student.fme.edu.vn")
	require.NoError(t, err)
	defer second.Close()
	assert.Empty(t, second.Snapshot().Title, "a fresh user starts from an empty draft")

	second.Edit(func(r *models.DutyReport) { r.Title = "Second user's shift" })
	require.NoError(t, second.SaveDraft())

	var persisted models.DutyReport
	require.NoError(t, store.Read(storage.DraftKey("23146101@student.fme.edu.vn"), &persisted))
	assert.Equal(t, "First user's shift", persisted.Title, "the other slot must be untouched")
}

// TestSaveDraft_ForcesPersistImmediately verifies the debounce is bypassed.
func TestSaveDraft_ForcesPersistImmediately(t *testing.T) {
	svc, store := newTestReportService(t)
	svc.AutosaveDebounce = time.Hour // make sure only SaveDraft can persist

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	defer editor.Close()

	editor.Edit(func(r *models.DutyReport) { r.Title = "forced" })
	require.NoError(t, editor.SaveDraft())

	r, err := draftRead(t, store)
	require.NoError(t, err)
	assert.Equal(t, "forced", r.Title)
}

// TestClose_CancelsPendingAutosave verifies close drops the pending write but
// keeps what the last autosave already persisted.
func TestClose_CancelsPendingAutosave(t *testing.T) {
	svc, store := newTestReportService(t)
	svc.AutosaveDebounce = 50 * time.Millisecond

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)

	editor.Edit(func(r *models.DutyReport) { r.Title = "kept" })
	require.NoError(t, editor.SaveDraft())

	editor.Edit(func(r *models.DutyReport) { r.Title = "dropped" })
	editor.Close()
	time.Sleep(100 * time.Millisecond)

	r, err := draftRead(t, store)
	require.NoError(t, err)
	assert.Equal(t, "kept", r.Title, "pending autosave after Close must not fire")
}

// ---------------- attachments ----------------

// TestAttachImages_SkipsNonImages verifies the declared-MIME filter.
func TestAttachImages_SkipsNonImages(t *testing.T) {
	svc, _ := newTestReportService(t)

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	defer editor.Close()

	editor.AttachImages([]UploadedImage{
		{Filename: "a.png", ContentType: "image/png", Data: []byte{1}},
		{Filename: "notes.pdf", ContentType: "application/pdf", Data: []byte{2}},
		{Filename: "b.jpg", ContentType: "image/jpeg", Data: []byte{3}},
	})

	assert.Len(t, editor.Snapshot().Images, 2, "non-image files are silently skipped")
	assert.Equal(t, 2, svc.blobCount())
}

// TestRemoveImage verifies exactly one ref is released with order preserved,
// and that out-of-range indexes are a no-op.
func TestRemoveImage(t *testing.T) {
	svc, _ := newTestReportService(t)

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	defer editor.Close()

	editor.AttachImages([]UploadedImage{
		{Filename: "a.png", ContentType: "image/png", Data: []byte("a")},
		{Filename: "b.png", ContentType: "image/png", Data: []byte("b")},
		{Filename: "c.png", ContentType: "image/png", Data: []byte("c")},
	})
	refs := editor.Snapshot().Images
	require.Len(t, refs, 3)

	editor.RemoveImage(1)

	got := editor.Snapshot().Images
	assert.Equal(t, []string{refs[0], refs[2]}, got, "remaining refs keep their order")
	assert.Equal(t, 2, svc.blobCount(), "exactly one blob released")
	_, ok := svc.Blob(refs[1])
	assert.False(t, ok, "released ref must be invalid")

	editor.RemoveImage(10) // no-op
	editor.RemoveImage(-1) // no-op
	assert.Len(t, editor.Snapshot().Images, 2)
}

// TestClose_ReleasesAllBlobs verifies the resource-lifetime contract.
func TestClose_ReleasesAllBlobs(t *testing.T) {
	svc, _ := newTestReportService(t)

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)

	editor.AttachImages([]UploadedImage{
		{Filename: "a.png", ContentType: "image/png", Data: []byte("a")},
		{Filename: "b.png", ContentType: "image/png", Data: []byte("b")},
	})
	require.Equal(t, 2, svc.blobCount())

	editor.Close()
	assert.Zero(t, svc.blobCount(), "Close must release every attachment")
}

// ---------------- submission ----------------

// TestSubmit_Preconditions checks each precondition independently with the
// other two satisfied.
func TestSubmit_Preconditions(t *testing.T) {
	t.Run("missing title", func(t *testing.T) {
		svc, store := newTestReportService(t)
		editor, _ := svc.OpenDraft(draftOwner)
		defer editor.Close()
		editor.Edit(func(r *models.DutyReport) { r.Date = "2026-03-01" })

		_, err := editor.Submit(adminSession())
		assert.ErrorIs(t, err, ErrReportInvalid)
		assert.Zero(t, submittedLen(t, store), "no list mutation on validation failure")
	})

	t.Run("missing date", func(t *testing.T) {
		svc, store := newTestReportService(t)
		editor, _ := svc.OpenDraft(draftOwner)
		defer editor.Close()
		editor.Edit(func(r *models.DutyReport) { r.Title = "Shift" })

		_, err := editor.Submit(adminSession())
		assert.ErrorIs(t, err, ErrReportInvalid)
		assert.Zero(t, submittedLen(t, store))
	})

	t.Run("no session", func(t *testing.T) {
		svc, store := newTestReportService(t)
		editor, _ := svc.OpenDraft(draftOwner)
		defer editor.Close()
		editor.Edit(func(r *models.DutyReport) { r.Title, r.Date = "Shift", "2026-03-01" })

		_, err := editor.Submit(models.Session{})
		assert.ErrorIs(t, err, ErrLoginRequired)
		assert.Zero(t, submittedLen(t, store))
	})

	t.Run("gate fails", func(t *testing.T) {
		svc, store := newTestReportService(t)
		editor, _ := svc.OpenDraft(draftOwner)
		defer editor.Close()
		editor.Edit(func(r *models.DutyReport) { r.Title, r.Date = "Shift", "2026-03-01" })

		plain := models.Session{Email: "1@student.fme.edu.vn", Role: models.RoleUser}
		_, err := editor.Submit(plain)
		assert.ErrorIs(t, err, ErrNotPermitted)
		assert.Zero(t, submittedLen(t, store))
	})
}

// TestSubmit_Success verifies stamping, list append, draft clearing and blob
// release.
func TestSubmit_Success(t *testing.T) {
	svc, store := newTestReportService(t)

	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	editor.Edit(func(r *models.DutyReport) {
		r.Title, r.Date, r.ScheduleID = "Evening shift", "2026-03-01", "sched-1"
	})
	editor.AttachImages([]UploadedImage{{Filename: "a.png", ContentType: "image/png", Data: []byte("a")}})
	require.NoError(t, editor.SaveDraft())

	report, err := editor.Submit(adminSession())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, models.ReportStatusSubmitted, report.Status)
	assert.Equal(t, "admin@student.fme.edu.vn", report.SubmittedBy)
	assert.NotEmpty(t, report.SubmittedAt)

	assert.Equal(t, 1, submittedLen(t, store))
	_, err = draftRead(t, store)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound, "draft slot must be cleared")
	assert.Zero(t, svc.blobCount(), "attachments released after submission")

	// submitted is terminal
	_, err = editor.Submit(adminSession())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, 1, submittedLen(t, store))
}

// blockingStore wraps a Store and parks writes to one key until released.
type blockingStore struct {
	storage.Store
	blockKey string
	entered  chan struct{}
	release  chan struct{}
}

func (b *blockingStore) Write(key string, v interface{}) error {
	if key == b.blockKey {
		b.entered <- struct{}{}
		<-b.release
	}
	return b.Store.Write(key, v)
}

// TestSubmit_SingleInFlight verifies a second Submit fails fast while the
// first one is still writing.
func TestSubmit_SingleInFlight(t *testing.T) {
	base, err := storage.NewFileStoreFs(afero.NewMemMapFs(), "data")
	require.NoError(t, err)
	store := &blockingStore{
		Store:    base,
		blockKey: storage.KeyReports,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}

	svc := NewReportService(store)
	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	editor.Edit(func(r *models.DutyReport) { r.Title, r.Date = "Shift", "2026-03-01" })

	done := make(chan error, 1)
	go func() {
		_, err := editor.Submit(adminSession())
		done <- err
	}()

	<-store.entered
	_, err = editor.Submit(adminSession())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(store.release)
	require.NoError(t, <-done)
}

// ---------------- manager surface ----------------

func seedSubmitted(t *testing.T, svc *ReportService, title, date, by string) models.DutyReport {
	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	editor.Edit(func(r *models.DutyReport) { r.Title, r.Date = title, date })
	report, err := editor.Submit(models.Session{Email: by, Role: models.RoleAdmin})
	require.NoError(t, err)
	return report
}

// TestFilter verifies submitter substring and date range with AND semantics.
func TestFilter(t *testing.T) {
	svc, _ := newTestReportService(t)

	seedSubmitted(t, svc, "r1", "2026-03-01", "20190001@student.fme.edu.vn")
	seedSubmitted(t, svc, "r2", "2026-03-05", "20190002@student.fme.edu.vn")
	seedSubmitted(t, svc, "r3", "2026-03-10", "20190001@student.fme.edu.vn")

	bySubmitter, err := svc.Filter(ReportFilter{Submitter: "20190001"})
	require.NoError(t, err)
	assert.Len(t, bySubmitter, 2)

	byRange, err := svc.Filter(ReportFilter{DateFrom: "2026-03-02", DateTo: "2026-03-09"})
	require.NoError(t, err)
	require.Len(t, byRange, 1)
	assert.Equal(t, "r2", byRange[0].Title)

	both, err := svc.Filter(ReportFilter{Submitter: "20190001", DateFrom: "2026-03-02"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "r3", both[0].Title)
}

// TestExportCSV_QuotingRoundTrip verifies a title with commas and quotes
// survives an export/re-parse round trip.
func TestExportCSV_QuotingRoundTrip(t *testing.T) {
	svc, _ := newTestReportService(t)

	title := `Shift, "A"`
	seedSubmitted(t, svc, title, "2026-03-01", "admin@student.fme.edu.vn")

	data, err := svc.ExportCSV()
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"id", "scheduleId", "title", "date", "submittedBy", "submittedAt", "status"}, records[0])
	assert.Equal(t, title, records[1][2], "quoted field must re-parse to the original string")
	assert.Equal(t, "submitted", records[1][6])
}

// TestExportJSON verifies the export parses and carries every entry.
func TestExportJSON(t *testing.T) {
	svc, _ := newTestReportService(t)

	seedSubmitted(t, svc, "r1", "2026-03-01", "a@student.fme.edu.vn")
	seedSubmitted(t, svc, "r2", "2026-03-02", "b@student.fme.edu.vn")

	data, err := svc.ExportJSON()
	require.NoError(t, err)

	var list []models.DutyReport
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Len(t, list, 2)
}

// TestDelete verifies removal by id and the not-found error.
func TestDelete(t *testing.T) {
	svc, store := newTestReportService(t)

	r1 := seedSubmitted(t, svc, "r1", "2026-03-01", "a@student.fme.edu.vn")
	seedSubmitted(t, svc, "r2", "2026-03-02", "b@student.fme.edu.vn")

	require.NoError(t, svc.Delete(r1.ID))
	assert.Equal(t, 1, submittedLen(t, store))

	assert.ErrorIs(t, svc.Delete("nope"), ErrReportNotFound)
}

// ---------------- persistence policy ----------------

// failingStore wraps a Store and fails writes to selected keys.
type failingStore struct {
	storage.Store
	failKeys map[string]bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Write(key string, v interface{}) error {
	if f.failKeys[key] {
		return errDiskFull
	}
	return f.Store.Write(key, v)
}

// TestPersistErrorPolicy verifies swallow-and-log versus propagate on a
// failing draft write.
func TestPersistErrorPolicy(t *testing.T) {
	base, err := storage.NewFileStoreFs(afero.NewMemMapFs(), "data")
	require.NoError(t, err)
	store := &failingStore{Store: base, failKeys: map[string]bool{storage.DraftKey(draftOwner): true}}

	svc := NewReportService(store)
	editor, err := svc.OpenDraft(draftOwner)
	require.NoError(t, err)
	defer editor.Close()
	editor.Edit(func(r *models.DutyReport) { r.Title = "x" })

	// default policy swallows the failure
	assert.NoError(t, editor.SaveDraft(), "swallow-and-log reports success")

	svc.SetPersistErrorPolicy(Propagate)
	assert.ErrorIs(t, editor.SaveDraft(), errDiskFull, "propagate surfaces the failure")
}
