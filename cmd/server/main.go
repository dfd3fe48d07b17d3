package main

import (
	"alpha-qms/internal/approval"
	"alpha-qms/internal/audit"
	"alpha-qms/internal/auditlog"
	"alpha-qms/internal/config"
	"alpha-qms/internal/db"
	"alpha-qms/internal/document"
	"alpha-qms/internal/equipment"
	"alpha-qms/internal/event"
	"alpha-qms/internal/group"
	"alpha-qms/internal/middleware"
	"alpha-qms/internal/nonconformity"
	"alpha-qms/internal/notification"
	"alpha-qms/internal/signature"
	"alpha-qms/internal/user"
	"alpha-qms/internal/worker"
	"alpha-qms/redis"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Seed database with initial data (for development)
	db.SeedData()

	// Cache for hot list endpoints
	cache := redis.NewCache(config.AppConfig.RedisAddress)
	defer cache.Close()

	// Worker pool backs the event bus and audit log writes
	pool := worker.NewPool(config.AppConfig.WorkerPoolSize)
	defer pool.Shutdown()

	bus := event.NewBus(pool)

	// Initialize repositories
	userRepo := user.NewRepository(db.AppDb)
	docRepo := document.NewRepository(db.AppDb)
	approvalRepo := approval.NewRepository(db.AppDb)
	ncRepo := nonconformity.NewRepository(db.AppDb)
	auditRepo := audit.NewRepository(db.AppDb)
	equipmentRepo := equipment.NewRepository(db.AppDb)
	signatureRepo := signature.NewRepository(db.AppDb)
	notificationRepo := notification.NewRepository(db.AppDb)
	groupRepo := group.NewRepository(db.AppDb)

	// Initialize services
	userService := user.NewService(userRepo)
	docService := document.NewService(docRepo, cache, bus)
	approvalService := approval.NewService(approvalRepo)
	ncService := nonconformity.NewService(ncRepo, bus)
	auditService := audit.NewService(auditRepo)
	equipmentService := equipment.NewService(equipmentRepo, bus)
	signatureService := signature.NewService(signatureRepo)
	groupService := group.NewService(groupRepo)

	// Reactors consuming domain events
	relay := notification.NewHTTPRelay(config.AppConfig.MailRelayAddress, config.AppConfig.MailRelaySecret)
	dispatcher := notification.NewDispatcher(notificationRepo, userRepo, groupRepo, relay)
	bus.Subscribe(dispatcher.Handle)

	equipmentReactor := equipment.NewReactor(equipmentRepo)
	bus.Subscribe(equipmentReactor.Handle)

	recorder := auditlog.NewRecorder(db.AppDb, pool)

	// Initialize handlers
	userHandler := user.NewHandler(userService)
	docHandler := document.NewHandler(docService)
	approvalHandler := approval.NewHandler(approvalService)
	ncHandler := nonconformity.NewHandler(ncService)
	auditHandler := audit.NewHandler(auditService)
	equipmentHandler := equipment.NewHandler(equipmentService)
	signatureHandler := signature.NewHandler(signatureService)
	notificationHandler := notification.NewHandler(notificationRepo, dispatcher)
	groupHandler := group.NewHandler(groupService)
	auditlogHandler := auditlog.NewHandler(recorder)

	authMw := &middleware.Auth{UserService: userService}

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	// Auth routes
	router.POST("/login", userHandler.Login)
	router.POST("/refresh", userHandler.RefreshToken)
	router.DELETE("/logout", authMw.AuthMiddleware(), userHandler.Logout)

	api := router.Group("/api", authMw.AuthMiddleware(), recorder.Middleware())

	// User routes
	api.POST("/users", userHandler.Register)
	api.GET("/users", userHandler.SearchUsers)
	api.GET("/profile", userHandler.GetProfile)
	api.PUT("/users/:id/role", userHandler.ChangeRole)
	api.DELETE("/users/:id", userHandler.Deactivate)

	// Document routes
	api.POST("/documents", docHandler.Create)
	api.GET("/documents", docHandler.List)
	api.GET("/documents/:id", docHandler.Show)
	api.PUT("/documents/:id", docHandler.Edit)
	api.POST("/documents/:id/submit", docHandler.Submit)
	api.GET("/documents/:id/versions", docHandler.Versions)
	api.POST("/documents/:id/versions/:versionId/restore", docHandler.RestoreVersion)
	api.POST("/documents/:id/readings", docHandler.ConfirmReading)
	api.POST("/documents/:id/obsolete", docHandler.MarkObsolete)
	api.GET("/documents/:id/approvals", approvalHandler.ByDocument)
	api.POST("/documents/:id/signatures", signatureHandler.Sign)
	api.GET("/documents/:id/signatures", signatureHandler.ByDocument)

	// Document types
	api.POST("/document-types", docHandler.CreateType)
	api.GET("/document-types", docHandler.ListTypes)

	// Group routes
	api.POST("/groups", groupHandler.Create)
	api.GET("/groups", groupHandler.List)
	api.GET("/groups/:id", groupHandler.Show)
	api.PUT("/groups/:id", groupHandler.Edit)
	api.POST("/groups/:id/members/:userId", groupHandler.AddMember)
	api.DELETE("/groups/:id/members/:userId", groupHandler.RemoveMember)
	api.POST("/groups/:id/document-types/:typeId", groupHandler.LinkDocumentType)
	api.DELETE("/groups/:id/document-types/:typeId", groupHandler.UnlinkDocumentType)

	// Approval routes
	api.GET("/approvals", approvalHandler.Pending)
	api.POST("/approvals/:id/approve", approvalHandler.Approve)
	api.POST("/approvals/:id/reject", approvalHandler.Reject)

	// Signature routes
	api.GET("/signatures", signatureHandler.Mine)
	api.GET("/signatures/:id/verify", signatureHandler.Verify)
	api.GET("/signatures/:id/certificate", signatureHandler.Certificate)

	// Non-conformity routes
	api.POST("/nonconformities", ncHandler.Open)
	api.GET("/nonconformities", ncHandler.List)
	api.GET("/nonconformities/:id", ncHandler.Show)
	api.PUT("/nonconformities/:id", ncHandler.Edit)
	api.POST("/nonconformities/:id/actions", ncHandler.FileAction)
	api.PUT("/nonconformities/:id/actions/:actionId", ncHandler.UpdateAction)

	// Audit routes
	api.POST("/audits", auditHandler.Schedule)
	api.GET("/audits", auditHandler.List)
	api.GET("/audits/:id", auditHandler.Show)
	api.PUT("/audits/:id/status", auditHandler.ChangeStatus)
	api.POST("/audits/:id/items", auditHandler.AddItem)
	api.PUT("/audits/:id/items/:itemId", auditHandler.VerifyItem)
	api.POST("/audits/:id/findings", auditHandler.RecordFinding)

	// Equipment routes
	api.POST("/equipments", equipmentHandler.Register)
	api.GET("/equipments", equipmentHandler.List)
	api.GET("/equipments/:id", equipmentHandler.Show)
	api.PUT("/equipments/:id", equipmentHandler.Edit)
	api.POST("/equipments/:id/services", equipmentHandler.LogService)
	api.PUT("/equipments/:id/services/:recordId/complete", equipmentHandler.CompleteService)

	// Equipment types
	api.POST("/equipment-types", equipmentHandler.CreateType)
	api.GET("/equipment-types", equipmentHandler.ListTypes)

	// Notification routes
	api.GET("/notifications", notificationHandler.Mine)
	api.POST("/notifications/reprocess", notificationHandler.Reprocess)

	// Report routes, collection-level queries live here
	api.GET("/reports/expiring-documents", docHandler.Expiring)
	api.GET("/reports/equipment-due", equipmentHandler.Due)
	api.GET("/reports/nonconformities", ncHandler.Reports)
	api.GET("/reports/audit-logs", auditlogHandler.List)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
