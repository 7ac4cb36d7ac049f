package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"road-quest-server/config"
	"road-quest-server/database"
	"road-quest-server/jobs"
	"road-quest-server/middleware"
	"road-quest-server/routes"
	"road-quest-server/services"
	ws "road-quest-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Optional listing cache
	database.InitializeRedis()

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Disable automatic redirects for trailing slashes
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	// Security headers (must be first)
	router.Use(middleware.SecurityHeadersMiddleware())

	// Request tracing
	router.Use(middleware.RequestID())

	// Input validation
	router.Use(middleware.InputValidationMiddleware())

	// Rate limiting
	router.Use(middleware.RateLimitMiddleware())

	// Secure CORS
	router.Use(middleware.CORSMiddleware())

	// Audit logging
	router.Use(middleware.AuditLogMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Road Quest Server is running",
			"time":    time.Now().UTC(),
		})
	})

	// Notification hub for car owners
	notificationHub := ws.NewHub()
	go notificationHub.Run()
	routes.InitBookingNotifier(notificationHub)
	routes.RegisterNotificationRoutes(router, notificationHub)

	// Public browsing routes
	routes.RegisterCarRoutes(router)

	// Auth routes (no authentication required) - with strict rate limiting
	authRoutes := router.Group("/auth")
	authRoutes.Use(middleware.AuthRateLimitMiddleware())
	routes.RegisterAuthRoutes(authRoutes)

	// Protected routes
	protected := router.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		routes.RegisterProtectedAuthRoutes(protected)
		routes.RegisterMyCarRoutes(protected)
		routes.RegisterUploadRoutes(protected)
		routes.RegisterBookingRoutes(protected)
	}

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	// Start background jobs
	expirationJob := jobs.NewExpirationJob()
	expirationJob.Start()
	defer expirationJob.Stop()

	// Start token cleanup job
	go func() {
		ticker := time.NewTicker(24 * time.Hour) // Run daily
		defer ticker.Stop()

		for range ticker.C {
			jwtService := services.NewJWTService()
			if err := jwtService.CleanupExpiredTokens(); err != nil {
				log.Printf("❌ Token cleanup failed: %v", err)
			}
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := router.Run("0.0.0.0:" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
