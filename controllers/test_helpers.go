// file: controllers/test_helpers.go
//go:build unit
// +build unit

package controllers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"fme-portal/middleware"
	"fme-portal/models"
	"fme-portal/storage"
)

// setupTestRouter creates a new Gin engine with session middleware and fake
// HTML templates.
func setupTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("testsession", store))

	tmpDir := t.TempDir()
	if err := createDummyTemplates(tmpDir); err != nil {
		t.Fatalf("Failed to create dummy templates: %v", err)
	}
	router.LoadHTMLGlob(filepath.Join(tmpDir, "*.html"))
	return router
}

// createDummyTemplates writes a set of minimal HTML templates to the provided directory.
func createDummyTemplates(dir string) error {
	templates := map[string]string{
		"index.html":            `<html><body>home {{.SignedIn}}</body></html>`,
		"about.html":            `<html><body>about</body></html>`,
		"contact.html":          `<html><body>contact</body></html>`,
		"signin.html":           `<html><body>signin {{.Error}}</body></html>`,
		"signup.html":           `<html><body>signup {{.Error}}</body></html>`,
		"profile.html":          `<html><body>profile {{.Error}}</body></html>`,
		"report_editor.html":    `<html><body>editor {{.Report.Title}}</body></html>`,
		"report_manager.html":   `<html><body>reports: {{len .Reports}}</body></html>`,
		"schedule_manager.html": `<html><body>roster: {{len .Schedules}}</body></html>`,
		"duty_signup.html":      `<html><body>signup page {{.Error}}</body></html>`,
		"sudo.html":             `<html><body>console: {{len .Keys}} keys</body></html>`,
		"sudo_unlock.html":      `<html><body>unlock {{.Error}}</body></html>`,
	}

	for name, content := range templates {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// newMemStore builds a FileStore over an in-memory filesystem.
func newMemStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewFileStoreFs(afero.NewMemMapFs(), "/data")
	if err != nil {
		t.Fatalf("Failed to create mem store: %v", err)
	}
	return store
}

// signInAs installs a session via a helper route and returns the cookie to
// attach to subsequent test requests.
func signInAs(t *testing.T, router *gin.Engine, route string, sess models.Session) *http.Cookie {
	t.Helper()
	router.GET(route, func(c *gin.Context) {
		if err := middleware.StoreSession(c, sess); err != nil {
			c.String(http.StatusInternalServerError, "session save failed")
			return
		}
		c.String(http.StatusOK, "session set")
	})

	req, _ := http.NewRequest("GET", route, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == "testsession" {
			return ck
		}
	}
	t.Fatal("no session cookie returned")
	return nil
}
