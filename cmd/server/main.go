package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/api/handlers"
	"github.com/maheshrc27/socialflow/internal/api/middleware"
	job "github.com/maheshrc27/socialflow/internal/jobs"
	"github.com/maheshrc27/socialflow/internal/providers"
	"github.com/maheshrc27/socialflow/internal/queue"
	"github.com/maheshrc27/socialflow/internal/ratelimit"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/secrets"
	"github.com/maheshrc27/socialflow/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	integrationRepo := repository.NewIntegrationRepository(db)
	postRepo := repository.NewPostRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	postAnalyticsRepo := repository.NewPostAnalyticsRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	store := secrets.NewStore(cfg.SecretKey)
	limiter := ratelimit.New(ratelimit.NewRedisStore(rdb), settingsRepo)
	registry := providers.NewRegistry(*cfg, store, limiter, settingsRepo, nil)

	validator := service.NewPostValidator(registry)
	postService := service.NewPostService(postRepo, postMediaRepo, integrationRepo, registry, validator)
	tokenService := service.NewTokenService(integrationRepo, registry, store)
	analyticsService := service.NewAnalyticsService(integrationRepo, postRepo, analyticsRepo, postAnalyticsRepo, registry)
	mediaService := service.NewMediaService(*cfg)
	oauthService := service.NewOAuthService(*cfg, rdb, integrationRepo, store, nil)
	integrationService := service.NewIntegrationService(*cfg, integrationRepo, store, nil)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	oauth := handlers.NewOAuthHandler(*cfg, oauthService)
	app.Get("/auth/facebook/callback", oauth.FacebookCallback)
	app.Get("/auth/instagram/callback", oauth.InstagramCallback)
	app.Get("/auth/linkedin/callback", oauth.LinkedInCallback)
	app.Get("/auth/twitter/callback", oauth.TwitterCallback)
	app.Get("/auth/youtube/callback", oauth.YouTubeCallback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/auth/:platform/initiate", oauth.Initiate)
	api.Get("/auth/meta/pages", oauth.MetaPages)
	api.Post("/auth/meta/connect", oauth.ConnectMetaPage)

	post := handlers.NewPostHandler(postService, mediaService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Post("/posts/:id/remove", post.DeletePost)
	api.Post("/posts/:id/publish", post.PublishNow)
	api.Post("/posts/:id/schedule", post.Schedule)
	api.Post("/posts/:id/cancel", post.Cancel)
	api.Post("/posts/validate", post.ValidateContent)
	api.Post("/media/upload", post.UploadMedia)

	analytics := handlers.NewAnalyticsHandler(analyticsService)
	api.Post("/analytics/accounts/:id/fetch", analytics.FetchAccount)
	api.Get("/analytics/accounts/:id/history", analytics.AccountHistory)
	api.Post("/analytics/posts/:id/fetch", analytics.FetchPost)
	api.Get("/analytics/posts/:id/history", analytics.PostHistory)
	api.Get("/analytics/top-posts", analytics.TopPosts)
	api.Get("/analytics/platforms/compare", analytics.ComparePlatforms)

	integration := handlers.NewIntegrationHandler(integrationService)
	api.Get("/integrations", integration.List)
	api.Get("/integrations/:id", integration.Get)
	api.Post("/integrations/:id/remove", integration.Disconnect)
	api.Post("/integrations/:id/test", integration.TestConnection)

	jobs := job.NewJobs(client, postRepo, tokenService, analyticsService, limiter)

	c := cron.New()
	if err := jobs.Register(c); err != nil {
		log.Fatalf("Failed to register cron jobs: %v", err)
	}
	c.Start()

	queueW := queue.NewQueue(postService, tokenService, analyticsService)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		log.Println("Starting the Asynq server...")
		if err := server.Run(queueW.Mux()); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
