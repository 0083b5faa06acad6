// Package main runs the campus events HTTP server with the realtime scan feed
// and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campus-pulse/backend/config"
	"github.com/campus-pulse/backend/internal/analytics"
	"github.com/campus-pulse/backend/internal/announcements"
	"github.com/campus-pulse/backend/internal/attendance"
	"github.com/campus-pulse/backend/internal/auth"
	"github.com/campus-pulse/backend/internal/events"
	"github.com/campus-pulse/backend/internal/excuses"
	"github.com/campus-pulse/backend/internal/leaderboard"
	"github.com/campus-pulse/backend/internal/middleware"
	"github.com/campus-pulse/backend/internal/models"
	"github.com/campus-pulse/backend/internal/notifications"
	"github.com/campus-pulse/backend/internal/organizations"
	"github.com/campus-pulse/backend/internal/points"
	"github.com/campus-pulse/backend/internal/qrcodes"
	"github.com/campus-pulse/backend/internal/realtime"
	"github.com/campus-pulse/backend/internal/registrations"
	"github.com/campus-pulse/backend/pkg/database"
	"github.com/campus-pulse/backend/pkg/queue"
	"github.com/campus-pulse/backend/pkg/redis"
	"github.com/campus-pulse/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Repositories
	authRepo := auth.NewRepository(pool)
	orgRepo := organizations.NewRepository(pool)
	eventRepo := events.NewRepository(pool)
	regRepo := registrations.NewRepository(pool)
	qrRepo := qrcodes.NewRepository(pool)
	pointsRepo := points.NewRepository(pool)
	excuseRepo := excuses.NewRepository(pool)
	annRepo := announcements.NewRepository(pool)
	notifRepo := notifications.NewRepository(pool)
	leaderRepo := leaderboard.NewRepository(pool)
	attendanceRepo := attendance.NewRepository(pool, qrRepo, regRepo)

	// Services
	qualifier := points.NewService(pointsRepo, attendanceRepo, cfg.Points.DefaultAward, logger)
	scanSvc := attendance.NewService(attendanceRepo, qualifier, hub, logger)

	// Handlers
	authHandler := auth.NewHandler(authRepo, jwtService, pointsRepo, logger)
	orgHandler := organizations.NewHandler(orgRepo, logger)
	qrHandler := qrcodes.NewHandler(qrRepo, orgRepo, logger)
	regHandler := registrations.NewHandler(regRepo, eventRepo, orgRepo, authRepo, jobQueue, logger)
	eventHandler := events.NewHandler(eventRepo, orgRepo, regHandler, logger)
	attendanceHandler := attendance.NewHandler(scanSvc, attendanceRepo, eventRepo, orgRepo)
	pointsHandler := points.NewHandler(pointsRepo)
	leaderHandler := leaderboard.NewHandler(leaderRepo, rdb, logger)
	excuseHandler := excuses.NewHandler(excuseRepo, eventRepo, regRepo, orgRepo, authRepo, jobQueue, logger)
	annHandler := announcements.NewHandler(annRepo, orgRepo)
	notifHandler := notifications.NewHandler(notifRepo)
	analyticsHandler := analytics.NewHandler(pool, eventRepo, orgRepo)

	// Joining an org provisions the member's QR identity and pre-registers
	// them for upcoming mandatory events.
	orgHandler.SetJoinHook(func(ctx context.Context, orgID, userID uuid.UUID) {
		qrHandler.EnsureForMember(ctx, orgID, userID)
		regHandler.AutoRegisterMember(ctx, orgID, userID)
	})

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	// Watching a scan feed requires organizer access to the event's org.
	canWatchFeed := func(ctx context.Context, eventID, userID uuid.UUID, role string) bool {
		if role == string(models.RoleAdmin) {
			return true
		}
		e, err := eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return false
		}
		ok, err := orgRepo.UserCanManage(ctx, e.OrganizationID, userID)
		return err == nil && ok
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)
		api.GET("/me", authHandler.Me)

		// Organizations
		api.POST("/organizations", orgHandler.Create)
		api.GET("/organizations", orgHandler.ListMine)
		api.GET("/organizations/pending", middleware.RequireRole("admin"), orgHandler.ListPending)
		api.POST("/organizations/:id/review", middleware.RequireRole("admin"), orgHandler.Review)
		api.POST("/organizations/join", orgHandler.Join)
		api.POST("/organizations/invites/:token/join", orgHandler.JoinByInvite)
		api.GET("/organizations/:id/members", orgHandler.ListMembers)
		api.POST("/organizations/:id/promote", orgHandler.Promote)
		api.GET("/organizations/:id/invite", orgHandler.GetInvite)

		// Events
		api.POST("/organizations/:id/events", eventHandler.Create)
		api.GET("/events", eventHandler.List)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PATCH("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)
		api.GET("/events/:id/analytics", analyticsHandler.GetByEvent)

		// Registrations
		api.POST("/events/:id/register", regHandler.Register)
		api.DELETE("/events/:id/register", regHandler.Cancel)
		api.GET("/events/:id/registrations", regHandler.ListByEvent)
		api.GET("/registrations/me", regHandler.ListMine)

		// QR identity
		api.GET("/qrcodes/me", qrHandler.Me)
		api.GET("/qrcodes/me/image", qrHandler.Image)
		api.PATCH("/qrcodes/:id", qrHandler.SetActive)

		// Attendance
		api.POST("/events/:id/scan", attendanceHandler.Scan)
		api.GET("/events/:id/attendance", attendanceHandler.Matrix)

		// Points & leaderboard
		api.GET("/points/me", pointsHandler.Me)
		api.POST("/points/adjust", middleware.RequireRole("admin"), pointsHandler.Adjust)
		api.GET("/leaderboard", leaderHandler.Top)

		// Excuses
		api.POST("/events/:id/excuses", excuseHandler.Submit)
		api.GET("/events/:id/excuses", excuseHandler.ListByEvent)
		api.POST("/excuses/:id/review", excuseHandler.Review)
		api.GET("/excuses/me", excuseHandler.ListMine)

		// Announcements
		api.GET("/announcements", annHandler.List)
		api.POST("/announcements", annHandler.Create)
		api.PATCH("/announcements/:id", annHandler.Update)
		api.DELETE("/announcements/:id", annHandler.Delete)

		// Notifications
		api.GET("/notifications/me", notifHandler.ListMine)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate, canWatchFeed))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
