// Package main runs the outing planner HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/planmyoutings/backend/config"
	"github.com/planmyoutings/backend/internal/admin"
	"github.com/planmyoutings/backend/internal/auth"
	"github.com/planmyoutings/backend/internal/emaillogs"
	"github.com/planmyoutings/backend/internal/enrichment"
	"github.com/planmyoutings/backend/internal/events"
	"github.com/planmyoutings/backend/internal/groups"
	"github.com/planmyoutings/backend/internal/middleware"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/internal/polls"
	"github.com/planmyoutings/backend/internal/realtime"
	"github.com/planmyoutings/backend/pkg/database"
	"github.com/planmyoutings/backend/pkg/queue"
	"github.com/planmyoutings/backend/pkg/redis"
	"github.com/planmyoutings/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	applied, err := database.Migrate(ctx, pool)
	if err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("files", applied))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	startCtx, cancelStart := context.WithTimeout(ctx, 5*time.Second)
	err = redisPubSub.Start(startCtx)
	cancelStart()
	if err != nil {
		logger.Fatal("redis pubsub", zap.Error(err))
	}
	defer redisPubSub.Close()
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	dispatcher := realtime.NewDispatcher(hub, cfg.Realtime.Buffer, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Identity
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, jwtService, jobQueue, cfg.SuperAdmin, cfg.Email.AdminEmail, logger)
	authHandler := auth.NewHandler(authService, logger)
	if err := authService.EnsureSuperAdmin(ctx); err != nil {
		logger.Fatal("super admin", zap.Error(err))
	}

	// Groups, events, polls
	groupService := groups.NewService(groups.NewRepository(pool), dispatcher, logger)
	groupHandler := groups.NewHandler(groupService)
	eventService := events.NewService(events.NewRepository(pool), groupService, dispatcher, logger)
	eventHandler := events.NewHandler(eventService)
	pollService := polls.NewService(polls.NewRepository(pool), eventService, dispatcher, logger)
	pollHandler := polls.NewHandler(pollService)

	// Places, movies, weather
	enrichmentHandler := enrichment.NewHandler(enrichment.NewClient(cfg.Enrichment, logger))

	// Admin dashboard
	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool))
	adminHandler := admin.NewHandler(admin.NewRepository(pool), authService, cfg.SuperAdmin.Username, logger)

	commands := socketCommands{groups: groupService, events: eventService, polls: pollService}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger, "/health"))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public
	public := router.Group("/api")
	{
		public.POST("/login", authHandler.Login)
		public.POST("/contact", authHandler.Contact)
	}

	// Protected API (JWT required)
	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService.Identify))
	{
		api.GET("/me", authHandler.Me)

		// Groups
		api.GET("/groups", groupHandler.List)
		api.POST("/groups", groupHandler.Create)
		api.GET("/groups/:id", groupHandler.Get)
		api.DELETE("/groups/:id", groupHandler.Delete)
		api.POST("/groups/:id/members", groupHandler.AddMember)
		api.DELETE("/groups/:id/members/:user_id", groupHandler.RemoveMember)
		api.POST("/groups/:id/messages", groupHandler.SendMessage)
		api.GET("/groups/:id/events", groups.RequireGroupMember(groupService), eventHandler.ListByGroup)

		// Events
		api.POST("/events", eventHandler.Create)
		api.GET("/events/:id", eventHandler.Get)
		api.POST("/events/:id/options", eventHandler.AddOption)
		api.POST("/events/:id/decision", eventHandler.RecordDecision)

		// Polls
		api.POST("/events/:id/polls", pollHandler.Create)
		api.POST("/polls/:id/vote", pollHandler.Vote)
		api.GET("/polls/:id/results", pollHandler.Results)

		// Enrichment
		api.GET("/places/search", enrichmentHandler.SearchPlaces)
		api.GET("/movies/search", enrichmentHandler.SearchMovies)
		api.GET("/weather/forecast", enrichmentHandler.Forecast)

		// Admin
		adminGroup := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		adminGroup.GET("/stats", adminHandler.Stats)
		adminGroup.GET("/recent-users", adminHandler.RecentUsers)
		adminGroup.GET("/system-activity", adminHandler.Activity)
		adminGroup.GET("/email-logs", emailLogsHandler.List)
		adminGroup.POST("/clear-demo-data", adminHandler.ClearDemoData)
		adminGroup.POST("/resend-email", adminHandler.ResendCredentials)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, commands, logger, jwtService.ValidateSocket))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Notification fan-out runs apart from the request path.
	dispatchCtx, dispatchCancel := context.WithCancel(context.Background())
	defer dispatchCancel()
	go dispatcher.Run(dispatchCtx)

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
	dispatchCancel()
	logger.Info("server stopped",
		zap.Int64("notifications_dropped", dispatcher.Dropped()),
		zap.Int64("notifications_failed", dispatcher.Failed()))
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
