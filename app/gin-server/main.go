package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ats-platform/ats-backend/config"
	"github.com/ats-platform/ats-backend/internal/analyzer"
	"github.com/ats-platform/ats-backend/internal/api/handlers"
	"github.com/ats-platform/ats-backend/internal/api/middleware"
	"github.com/ats-platform/ats-backend/internal/api/routes"
	"github.com/ats-platform/ats-backend/internal/cache"
	"github.com/ats-platform/ats-backend/internal/events"
	"github.com/ats-platform/ats-backend/internal/logger"
	mongorepo "github.com/ats-platform/ats-backend/internal/repositories/mongo"
	pgrepo "github.com/ats-platform/ats-backend/internal/repositories/postgres"
	"github.com/ats-platform/ats-backend/internal/security"
	"github.com/ats-platform/ats-backend/internal/services"
	"github.com/ats-platform/ats-backend/internal/storage"
	"github.com/ats-platform/ats-backend/internal/workers"
	"github.com/ats-platform/ats-backend/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	log.Info("PostgreSQL connected")

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	log.Info("MongoDB connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	log.Info("Redis connected")

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}
	tokens := security.NewTokenProvider(secret, envDuration("JWT_ACCESS_TTL", 30*time.Minute), envDuration("JWT_REFRESH_TTL", 7*24*time.Hour))

	bucket := os.Getenv("GCS_BUCKET")
	if bucket == "" {
		log.Fatal("GCS_BUCKET environment variable is not set")
	}
	uploader, err := storage.NewGCSUploader(context.Background(), bucket)
	if err != nil {
		log.Fatalf("GCS init error: %v", err)
	}
	defer uploader.Close()

	analyzerURL := os.Getenv("ANALYZER_URL")
	if analyzerURL == "" {
		log.Fatal("ANALYZER_URL environment variable is not set")
	}

	// Repositories
	users := pgrepo.NewUserRepo(config.PostgresDB)
	jobs := pgrepo.NewJobRepo(config.PostgresDB)
	apps := pgrepo.NewApplicationRepo(config.PostgresDB)
	parseRuns := mongorepo.NewParseRunRepo(config.MongoDatabase())

	rdb := cache.NewRedisCache(config.RedisClient)
	hub := events.NewHub()
	queue := workers.NewReparseQueue(config.RedisClient)
	policy := workflow.PolicyFromName(os.Getenv("WORKFLOW_POLICY"))
	log.WithField("policy", policy.Name()).Info("workflow policy selected")

	// Services
	authSvc := services.NewAuthService(users, tokens, rdb)
	jobSvc := services.NewJobService(jobs, rdb)
	appSvc := services.NewApplicationService(apps, parseRuns, uploader, policy, queue, hub, rdb)

	// Background reparse pipeline
	pool := &workers.ReparseWorkerPool{
		Redis:        config.RedisClient,
		Applications: apps,
		ParseRuns:    parseRuns,
		Analyzer:     analyzer.NewHTTPProvider(analyzerURL, envDuration("ANALYZER_TIMEOUT", 180*time.Second)),
		Logger:       log,
	}
	if err := pool.Start(context.Background()); err != nil {
		log.Fatalf("reparse worker init error: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Tokens:       tokens,
		Denylist:     rdb,
		Auth:         handlers.NewAuthHandler(authSvc),
		Jobs:         handlers.NewJobHandler(jobSvc, appSvc, authSvc),
		Applications: handlers.NewApplicationHandler(appSvc, authSvc),
		WS:           handlers.NewWSHandler(hub),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
