// controllers/manager_controller_test.go
//go:build unit
// +build unit

package controllers

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fme-portal/models"
	"fme-portal/services"
	"fme-portal/storage"
)

func adminSession() models.Session {
	return models.Session{
		Email: "head@fme.edu.vn",
		Name:  "Department Head",
		Role:  models.RoleAdmin,
	}
}

func seedReports(t *testing.T, store storage.Store) {
	t.Helper()
	reports := []models.DutyReport{
		{
			ID: "r-1", Title: "Monday duty", Date: "2026-09-07",
			Status: models.ReportStatusSubmitted, SubmittedBy: "23146077@student.fme.edu.vn",
			SubmittedAt: "2026-09-07T12:00:00Z",
		},
		{
			ID: "r-2", Title: "Tuesday duty", Date: "2026-09-08",
			Status: models.ReportStatusSubmitted, SubmittedBy: "23146099@student.fme.edu.vn",
			SubmittedAt: "2026-09-08T12:00:00Z",
		},
	}
	require.NoError(t, store.Write(storage.KeyReports, reports))
}

func newManagerRig(t *testing.T) (*gin.Engine, storage.Store, *http.Cookie) {
	router := setupTestRouter(t)
	store := newMemStore(t)
	mc := NewManagerController(services.NewReportService(store), services.NewScheduleService(store))

	router.GET("/manager/reports", mc.ListReports)
	router.GET("/manager/reports/export.csv", mc.ExportReportsCSV)
	router.GET("/manager/reports/export.json", mc.ExportReportsJSON)
	router.POST("/manager/reports/:id/delete", mc.DeleteReport)
	router.GET("/manager/schedules", mc.ListSchedules)
	router.POST("/manager/schedules", mc.CreateSchedule)
	router.POST("/manager/schedules/:id/confirm", mc.ConfirmSchedule)
	router.POST("/manager/schedules/:id/delete", mc.DeleteSchedule)

	cookie := signInAs(t, router, "/test/set-session", adminSession())
	return router, store, cookie
}

func managerGET(router http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListReports_FilterBySubmitter(t *testing.T) {
	router, store, cookie := newManagerRig(t)
	seedReports(t, store)

	w := managerGET(router, "/manager/reports?submitter=23146077@student.fme.edu.vn", cookie)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reports: 1")
}

func TestExportReportsCSV_ColumnOrder(t *testing.T) {
	router, store, cookie := newManagerRig(t)
	seedReports(t, store)

	w := managerGET(router, "/manager/reports/export.csv", cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"id", "scheduleId", "title", "date", "submittedBy", "submittedAt", "status"}, rows[0])
	assert.Len(t, rows, 3, "header plus two reports")
}

func TestExportReportsJSON(t *testing.T) {
	router, store, cookie := newManagerRig(t)
	seedReports(t, store)

	w := managerGET(router, "/manager/reports/export.json", cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Monday duty")
}

func TestDeleteReport_RemovesFromList(t *testing.T) {
	router, store, cookie := newManagerRig(t)
	seedReports(t, store)

	req, _ := http.NewRequest("POST", "/manager/reports/r-1/delete", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var remaining []models.DutyReport
	require.NoError(t, store.Read(storage.KeyReports, &remaining))
	require.Len(t, remaining, 1)
	assert.Equal(t, "r-2", remaining[0].ID)
}

func TestDeleteReport_UnknownID(t *testing.T) {
	router, store, cookie := newManagerRig(t)
	seedReports(t, store)

	req, _ := http.NewRequest("POST", "/manager/reports/nope/delete", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleLifecycle(t *testing.T) {
	router, store, cookie := newManagerRig(t)

	// create
	form := url.Values{
		"date":         {"2026-09-10"},
		"shift":        {models.ShiftMorning},
		"studentName":  {"A Member"},
		"studentEmail": {"23146077@student.fme.edu.vn"},
	}
	w := postForm(router, "/manager/schedules", form, cookie)
	require.Equal(t, http.StatusOK, w.Code, "create should succeed: %s", w.Body.String())

	var schedules []models.Schedule
	require.NoError(t, store.Read(storage.KeySchedules, &schedules))
	require.Len(t, schedules, 1)
	id := schedules[0].ID

	// duplicate slot rejected
	w = postForm(router, "/manager/schedules", form, cookie)
	assert.Equal(t, http.StatusConflict, w.Code)

	// confirm
	req, _ := http.NewRequest("POST", "/manager/schedules/"+id+"/confirm", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, store.Read(storage.KeySchedules, &schedules))
	assert.True(t, schedules[0].Confirmed)
	assert.Equal(t, "head@fme.edu.vn", schedules[0].ConfirmedBy)

	// delete
	req, _ = http.NewRequest("POST", "/manager/schedules/"+id+"/delete", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, store.Read(storage.KeySchedules, &schedules))
	assert.Empty(t, schedules)
}
