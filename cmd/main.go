package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/maloba12/umutulo/internal/handler"
	"github.com/maloba12/umutulo/internal/middleware"
	"github.com/maloba12/umutulo/pkg/config"
	"github.com/maloba12/umutulo/pkg/database"
	"github.com/maloba12/umutulo/pkg/jwtutil"
	"github.com/maloba12/umutulo/pkg/logger"
	"github.com/maloba12/umutulo/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting giving service...", cfg.LogConfig()...)

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Wire handlers to the identity provider and blob store
	handler.Init(cfg)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.GET("/churches", handler.ListChurches)
	e.GET("/logos/:churchID", handler.GetLogo)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/register-member", handler.RegisterMember)
	auth.POST("/login", handler.Login)
	auth.POST("/logout", handler.Logout)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Profile - available to any authenticated identity
	users := api.Group("/users")
	users.GET("/profile", handler.GetProfile)
	users.PATCH("/profile", handler.UpdateProfile)
	users.POST("/change-password", handler.ChangePassword)

	// Church-scoped routes - require the identity to be bound to a church
	scoped := api.Group("")
	scoped.Use(middleware.RequireChurchContext)

	// Church settings - admin only
	church := scoped.Group("/church")
	church.GET("", handler.GetChurch)
	church.PATCH("", handler.UpdateChurch, middleware.RequireAdmin)
	church.POST("/logo", handler.UploadLogo, middleware.RequireAdmin)

	// Member directory - admin only
	members := scoped.Group("/members", middleware.RequireAdmin)
	members.GET("", handler.ListMembers)
	members.POST("", handler.CreateMember)
	members.POST("/import", handler.ImportMembers)
	members.GET("/:id", handler.GetMember)
	members.PATCH("/:id", handler.UpdateMember)
	members.DELETE("/:id", handler.DeleteMember)

	// Transaction ledger
	transactions := scoped.Group("/transactions")
	transactions.POST("", handler.RecordTransaction, middleware.RequireAdmin)
	transactions.GET("", handler.ListTransactions, middleware.RequireAdmin)
	transactions.GET("/mine", handler.ListMyTransactions)

	// Dashboard aggregates - admin only
	scoped.GET("/dashboard/summary", handler.DashboardSummary, middleware.RequireAdmin)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
