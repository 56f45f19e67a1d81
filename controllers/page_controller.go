// Package controllers file: controllers/page_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fme-portal/logger"
	"fme-portal/middleware"
	"fme-portal/models"
	"fme-portal/storage"
)

var (
	ApplicationURL string
	WebsocketURL   string
)

var loadSiteContentFunc = models.LoadSiteContent // swappable for tests

// SetConfig sets global application and WebSocket URLs
func SetConfig(appURL, wsURL string) {
	ApplicationURL = appURL
	WebsocketURL = wsURL
	logger.Info.Printf("SetConfig: global config updated: ApplicationURL=%s, WebsocketURL=%s", appURL, wsURL)
}

// Health answers load-balancer checks.
func Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Home renders the landing page with banners, news and programs.
func Home(c *gin.Context) {
	content, err := loadSiteContentFunc()
	if err != nil {
		logger.Error.Printf("Home: failed to load site content: %v", err)
		content = &models.SiteContent{}
	}

	sess := middleware.CurrentSession(c)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"WebsocketURL": WebsocketURL,
		"Banners":      content.Banners,
		"News":         content.News,
		"Programs":     content.Programs,
		"User":         sess,
		"SignedIn":     !sess.IsZero(),
	})
}

// About renders the faculty introduction page.
func About(c *gin.Context) {
	c.HTML(http.StatusOK, "about.html", gin.H{
		"User": middleware.CurrentSession(c),
	})
}

// Contact renders the contact page.
func Contact(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{
		"User": middleware.CurrentSession(c),
	})
}

// ---- site preferences ----

// PreferenceController persists the visitor-facing theme and language choices.
type PreferenceController struct {
	Store storage.Store
}

// NewPreferenceController constructs the controller with its backing store.
func NewPreferenceController(store storage.Store) *PreferenceController {
	return &PreferenceController{Store: store}
}

var validThemes = map[string]bool{"light": true, "dark": true}

// GetPreferences returns the stored theme and language, with defaults.
func (pc *PreferenceController) GetPreferences(c *gin.Context) {
	theme := "light"
	if err := pc.Store.Read(storage.KeyTheme, &theme); err != nil && err != storage.ErrKeyNotFound {
		logger.Error.Printf("GetPreferences: reading theme: %v", err)
	}
	language := "vi"
	if err := pc.Store.Read(storage.KeyLanguage, &language); err != nil && err != storage.ErrKeyNotFound {
		logger.Error.Printf("GetPreferences: reading language: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"theme": theme, "language": language})
}

// SetTheme stores the preferred theme.
func (pc *PreferenceController) SetTheme(c *gin.Context) {
	var body struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !validThemes[body.Theme] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be light or dark"})
		return
	}
	if err := pc.Store.Write(storage.KeyTheme, body.Theme); err != nil {
		logger.Error.Printf("SetTheme: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save theme"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": body.Theme})
}

// SetLanguage stores the preferred language.
func (pc *PreferenceController) SetLanguage(c *gin.Context) {
	var body struct {
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || (body.Language != "vi" && body.Language != "en") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language must be vi or en"})
		return
	}
	if err := pc.Store.Write(storage.KeyLanguage, body.Language); err != nil {
		logger.Error.Printf("SetLanguage: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save language"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": body.Language})
}
