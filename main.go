// main.go
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"fme-portal/controllers"
	"fme-portal/identity"
	"fme-portal/logger"
	"fme-portal/middleware"
	"fme-portal/services"
	"fme-portal/storage"
	"fme-portal/websocket"
)

func main() {
	// Load .env for local development; in deployment the variables come from
	// the environment.
	if err := godotenv.Load(); err != nil {
		logger.Info.Println("No .env file found, relying on environment variables")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Read configuration from environment variables
	applicationURL := os.Getenv("APPLICATION_URL")
	if applicationURL == "" {
		applicationURL = "http://localhost:8080" // Default to localhost for local testing
	}
	websocketURL := os.Getenv("WEBSOCKET_URL")
	if websocketURL == "" {
		websocketURL = "ws://localhost:8080/duty-updates"
	}
	controllers.SetConfig(applicationURL, websocketURL)

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	store, err := storage.NewFileStore(dataDir)
	if err != nil {
		log.Fatalf("Failed to open data dir %s: %v", dataDir, err)
	}

	// Initialize session store
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		sessionSecret = "development-secret"
		logger.Warn.Println("SESSION_SECRET not set, using development default")
	}
	cookieStore := cookie.NewStore([]byte(sessionSecret))
	cookieStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   os.Getenv("SECURE_COOKIES") == "true",
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("fmeportal", cookieStore))

	// Load HTML templates and static assets
	router.LoadHTMLGlob("./templates/*.html")
	router.Static("/static", "./static")
	router.GET("/favicon.ico", func(c *gin.Context) {
		c.File("./static/images/favicon.ico")
	})

	// Wire services
	accounts := services.NewAccountService(store)
	reports := services.NewReportService(store)
	schedules := services.NewScheduleService(store)
	provider := identity.NewGoogleProvider()

	authCtl := controllers.NewAuthController(accounts, provider)
	reportCtl := controllers.NewReportController(reports)
	managerCtl := controllers.NewManagerController(reports, schedules)
	scheduleCtl := controllers.NewScheduleController(schedules, services.DutyTeamAllowList())
	prefCtl := controllers.NewPreferenceController(store)
	sudoCtl := controllers.NewSudoController(store)
	heartbeats := NewHeartbeatManager()
	heartbeats.CleanupInactiveSessions(30 * time.Minute)

	// Public routes
	router.GET("/health", controllers.Health)
	router.GET("/", controllers.Home)
	router.GET("/about", controllers.About)
	router.GET("/contact", controllers.Contact)
	router.GET("/signin", authCtl.ShowSignIn)
	router.POST("/signin", authCtl.PerformSignIn)
	router.GET("/signup", authCtl.ShowSignUp)
	router.POST("/signup", authCtl.PerformSignUp)
	router.POST("/auth/provider", authCtl.ProviderSignIn)
	router.GET("/preferences", prefCtl.GetPreferences)
	router.PUT("/preferences/theme", prefCtl.SetTheme)
	router.PUT("/preferences/language", prefCtl.SetLanguage)

	// Signed-in routes
	protected := router.Group("/", middleware.AuthRequired)
	{
		protected.POST("/signout", authCtl.SignOut)
		protected.GET("/profile", authCtl.Profile)
		protected.POST("/profile", authCtl.UpdateProfile)
		protected.POST("/profile/avatar", authCtl.UpdateAvatar)
		protected.POST("/profile/password", authCtl.ChangePassword)

		protected.GET("/duty/signup", scheduleCtl.ShowSignup)
		protected.POST("/duty/signup", scheduleCtl.PerformSignup)
		protected.GET("/duty/mine", scheduleCtl.MySchedules)
		protected.GET("/duty/qrcode", scheduleCtl.GetSignupQRCode)

		protected.GET("/heartbeat", gin.WrapF(heartbeats.Handler))
	}

	// Duty-report workflow, gated on report access
	reportsGroup := router.Group("/reports", middleware.AuthRequired, middleware.ReportAccessRequired())
	{
		reportsGroup.GET("/new", reportCtl.ShowEditor)
		reportsGroup.POST("/draft", reportCtl.Autosave)
		reportsGroup.POST("/draft/save", reportCtl.SaveDraft)
		reportsGroup.POST("/draft/images", reportCtl.UploadImages)
		reportsGroup.POST("/draft/images/remove", reportCtl.RemoveImage)
		reportsGroup.GET("/blob/:id", reportCtl.ServeBlob)
		reportsGroup.POST("/submit", reportCtl.Submit)
		reportsGroup.POST("/close", reportCtl.CloseEditor)
	}

	// Manager views, admin only
	manager := router.Group("/manager", middleware.AuthRequired, middleware.AdminRequired())
	{
		manager.GET("/reports", managerCtl.ListReports)
		manager.GET("/reports/export.csv", managerCtl.ExportReportsCSV)
		manager.GET("/reports/export.json", managerCtl.ExportReportsJSON)
		manager.POST("/reports/:id/delete", managerCtl.DeleteReport)
		manager.GET("/schedules", managerCtl.ListSchedules)
		manager.POST("/schedules", managerCtl.CreateSchedule)
		manager.POST("/schedules/:id/confirm", managerCtl.ConfirmSchedule)
		manager.POST("/schedules/:id/delete", managerCtl.DeleteSchedule)
	}

	// Operator console
	router.GET("/sudo/unlock", middleware.AuthRequired, sudoCtl.ShowUnlock)
	router.POST("/sudo/unlock", middleware.AuthRequired, sudoCtl.Unlock)
	sudo := router.Group("/sudo", middleware.AuthRequired, middleware.SudoRequired())
	{
		sudo.GET("", sudoCtl.Panel)
		sudo.POST("/force-signout", sudoCtl.ForceSignOut)
		sudo.POST("/clear-draft", sudoCtl.ClearDraftSlot)
		sudo.POST("/purge", sudoCtl.PurgeStorage)
	}

	// Live updates
	router.GET("/duty-updates", func(c *gin.Context) {
		websocket.ServeWs(websocket.AudienceDuty, c.Writer, c.Request)
	})
	router.GET("/manager-updates", middleware.AuthRequired, middleware.AdminRequired(), func(c *gin.Context) {
		websocket.ServeWs(websocket.AudienceManager, c.Writer, c.Request)
	})

	// Start the WebSocket handler
	go websocket.HandleMessages()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
