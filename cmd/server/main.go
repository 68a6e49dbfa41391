package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classpulse/internal/cache"
	"classpulse/internal/config"
	"classpulse/internal/live"
	"classpulse/internal/repository"
	"classpulse/internal/service"
	"classpulse/internal/tagger"
	"classpulse/internal/transport/rest"
	"classpulse/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize repositories
	instructorRepo := repository.NewInstructorRepo(db)
	courseRepo := repository.NewCourseRepo(db)
	tagRepo := repository.NewTagRepo(db)
	engRepo := repository.NewEngagementRepo(db)

	// Initialize caches
	sessionCache := cache.NewSessionCache(rdb, cfg.SessionCacheTTL)
	tagCache := cache.NewTagCache(rdb, cfg.TagCacheTTL)

	// Initialize core state and services
	registry := live.NewRegistry()
	cosineTagger := tagger.NewCosineTagger(cfg.TaggerFeatures)

	authSvc := service.NewAuthService()
	catalogSvc := service.NewCatalogService(instructorRepo, courseRepo, tagRepo, engRepo, tagCache)
	sessionSvc := service.NewSessionService(registry, courseRepo, tagRepo, engRepo, sessionCache, tagCache, cosineTagger)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	sessionSvc.SetBroadcaster(wsHub)

	// Evict abandoned rooms in the background
	go sessionSvc.Janitor(ctx, cfg.JanitorInterval, cfg.RoomIdleTTL)

	// Create router with container
	container := &rest.Container{
		AuthService:    authSvc,
		SessionService: sessionSvc,
		CatalogService: catalogSvc,
		WSHub:          wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  GET  /create_session?phrase=...&course_id=...")
		log.Println("  GET  /ws")
		log.Println("  POST /v1/auth/login")
		log.Println("  POST/GET /v1/instructors")
		log.Println("  POST/GET /v1/courses")
		log.Println("  POST/GET /v1/tags")
		log.Println("  GET  /v1/sessions/{code}")
		log.Println("  POST /v1/sessions/{code}/end")
		log.Println("  GET  /v1/courses/{id}/engagements")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
