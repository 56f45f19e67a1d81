// controllers/report_controller_test.go
//go:build unit
// +build unit

package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fme-portal/models"
	"fme-portal/services"
	"fme-portal/storage"
)

func reporterSession() models.Session {
	return models.Session{
		Email:            "23146077@student.fme.edu.vn",
		Name:             "Duty Member",
		Role:             models.RoleUser,
		StudentID:        "23146077",
		CanAccessReports: true,
	}
}

// newReportRig wires a controller over a fresh in-memory store.
func newReportRig(t *testing.T) (*gin.Engine, *ReportController, storage.Store, *http.Cookie) {
	router := setupTestRouter(t)
	store := newMemStore(t)
	svc := services.NewReportService(store)
	svc.AutosaveDebounce = 20 * time.Millisecond
	rc := NewReportController(svc)

	router.POST("/reports/draft", rc.Autosave)
	router.POST("/reports/draft/save", rc.SaveDraft)
	router.POST("/reports/draft/images", rc.UploadImages)
	router.POST("/reports/draft/images/remove", rc.RemoveImage)
	router.POST("/reports/submit", rc.Submit)
	router.POST("/reports/close", rc.CloseEditor)
	router.GET("/reports/new", rc.ShowEditor)

	cookie := signInAs(t, router, "/test/set-session", reporterSession())
	return router, rc, store, cookie
}

func postJSON(router http.Handler, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAutosave_PersistsAfterDebounce(t *testing.T) {
	router, _, store, cookie := newReportRig(t)

	w := postJSON(router, "/reports/draft",
		`{"title":"Monday duty","date":"2026-09-07","summary":"All quiet."}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Eventually(t, func() bool {
		var draft models.DutyReport
		if err := store.Read(storage.DraftKey(reporterSession().Email), &draft); err != nil {
			return false
		}
		return draft.Title == "Monday duty"
	}, time.Second, 10*time.Millisecond, "draft should land in storage after the debounce window")
}

func TestShowEditor_ResumesPersistedDraft(t *testing.T) {
	router, _, store, cookie := newReportRig(t)

	draft := models.EmptyDraft()
	draft.Title = "Resumed title"
	require.NoError(t, store.Write(storage.DraftKey(reporterSession().Email), draft))

	req, _ := http.NewRequest("GET", "/reports/new", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Resumed title")
}

func TestUploadImages_FiltersNonImages(t *testing.T) {
	router, _, _, cookie := newReportRig(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="images"; filename="photo.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))

	part, err = mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="images"; filename="notes.txt"`},
		"Content-Type":        {"text/plain"},
	})
	require.NoError(t, err)
	_, _ = part.Write([]byte("not an image"))
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest("POST", "/reports/draft/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var snapshot models.DutyReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Len(t, snapshot.Images, 1, "only the image part should attach")
	assert.True(t, strings.HasPrefix(snapshot.Images[0], "blob:"))
}

func TestSubmit_HappyPath(t *testing.T) {
	router, _, store, cookie := newReportRig(t)

	w := postJSON(router, "/reports/draft",
		`{"title":"Monday duty","date":"2026-09-07","summary":"All quiet."}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/reports/submit", `{}`, cookie)
	require.Equal(t, http.StatusOK, w.Code, "submit should succeed: %s", w.Body.String())

	var report models.DutyReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, models.ReportStatusSubmitted, report.Status)
	assert.Equal(t, "23146077@student.fme.edu.vn", report.SubmittedBy)

	var submitted []models.DutyReport
	require.NoError(t, store.Read(storage.KeyReports, &submitted))
	require.Len(t, submitted, 1)

	// draft slot is cleared on submit
	var draft models.DutyReport
	assert.ErrorIs(t, store.Read(storage.DraftKey(reporterSession().Email), &draft), storage.ErrKeyNotFound)
}

func TestSubmit_MissingTitleRejected(t *testing.T) {
	router, _, _, cookie := newReportRig(t)

	w := postJSON(router, "/reports/draft", `{"title":"","date":"2026-09-07"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/reports/submit", `{}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Title and date")
}

func TestSubmit_WithoutGrantForbidden(t *testing.T) {
	router := setupTestRouter(t)
	svc := services.NewReportService(newMemStore(t))
	rc := NewReportController(svc)
	router.POST("/reports/draft", rc.Autosave)
	router.POST("/reports/submit", rc.Submit)

	plain := reporterSession()
	plain.CanAccessReports = false
	cookie := signInAs(t, router, "/test/set-session", plain)

	w := postJSON(router, "/reports/draft", `{"title":"T","date":"2026-09-07"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/reports/submit", `{}`, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRemoveImage_OutOfRangeIsNoOp(t *testing.T) {
	router, _, _, cookie := newReportRig(t)

	w := postJSON(router, "/reports/draft/images/remove", `{"index":5}`, cookie)
	assert.Equal(t, http.StatusOK, w.Code, "removing a missing index should not fail")
}

func TestCloseEditor_Idempotent(t *testing.T) {
	router, _, _, cookie := newReportRig(t)

	w := postJSON(router, "/reports/close", `{}`, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	w = postJSON(router, "/reports/close", `{}`, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
}
