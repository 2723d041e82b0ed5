package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tetherapp/tether-api/internal/config"
	"github.com/tetherapp/tether-api/internal/domain/graph"
	"github.com/tetherapp/tether-api/internal/domain/notification"
	"github.com/tetherapp/tether-api/internal/domain/user"
	"github.com/tetherapp/tether-api/internal/middleware"
	"github.com/tetherapp/tether-api/internal/pkg/database"
	"github.com/tetherapp/tether-api/internal/pkg/jwt"
	"github.com/tetherapp/tether-api/internal/pkg/logger"
	"github.com/tetherapp/tether-api/internal/pkg/response"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().Str("env", cfg.Env).Msg("Starting tether-api")

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.ClosePostgres(db)

	// Ensure schema
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := graph.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		cancel()
	}

	// Connect to Redis (optional)
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	// JWT service
	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	authMiddleware := middleware.Auth(jwtService)

	// Repositories
	userRepo := user.NewRepository(db)
	graphRepo := graph.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	// Realtime notification hub
	hub := notification.NewHub(redisClient)
	go hub.Run()
	defer hub.Stop()

	// Services
	notificationService := notification.NewService(notificationRepo, hub)
	graphService := graph.NewService(graphRepo, userRepo, &notificationEmitter{notifications: notificationService})

	// Periodic notification retention sweep
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			deleted, err := notificationService.CleanupOlderThan(ctx, 90*24*time.Hour)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("Notification cleanup failed")
				continue
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("Old notifications removed")
			}
		}
	}()

	// Handlers
	userHandler := user.NewHandler(userRepo)
	graphHandler := graph.NewHandler(graphService, &profileFetcher{users: userRepo})
	notificationHandler := notification.NewHandler(notificationService, hub)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		graphHandler.Register(r, authMiddleware)
		userHandler.Register(r, authMiddleware)
		r.Mount("/notifications", notificationHandler.Routes(authMiddleware))
	})

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

// notificationEmitter records relationship events as notifications for the
// affected user.
type notificationEmitter struct {
	notifications *notification.Service
}

func (e *notificationEmitter) Emit(ctx context.Context, event graph.Event) error {
	_, err := e.notifications.Record(ctx, event.TargetID, notification.Type(event.Type), event.ActorID, event.OccurredAt)
	return err
}

// profileFetcher adapts the user directory to the relationship listings.
type profileFetcher struct {
	users user.Repository
}

func (f *profileFetcher) GetSummaries(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]graph.UserSummary, error) {
	summaries, err := f.users.GetSummaries(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]graph.UserSummary, len(summaries))
	for id, s := range summaries {
		out[id] = graph.UserSummary{
			Username:    s.Username,
			DisplayName: s.DisplayName,
			AvatarURL:   s.AvatarURL,
		}
	}
	return out, nil
}
