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
	config "github.com/codenberg/socialflow/configs"
	"github.com/codenberg/socialflow/internal/api/handlers"
	"github.com/codenberg/socialflow/internal/api/middleware"
	job "github.com/codenberg/socialflow/internal/jobs"
	"github.com/codenberg/socialflow/internal/platform"
	"github.com/codenberg/socialflow/internal/publisher"
	"github.com/codenberg/socialflow/internal/queue"
	"github.com/codenberg/socialflow/internal/repository"
	"github.com/codenberg/socialflow/internal/scheduler"
	"github.com/codenberg/socialflow/internal/service"
	"github.com/robfig/cron"
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

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
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

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	connectionRepo := repository.NewSocialConnectionRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	mediaService := service.NewMediaService(*cfg, mediaAssetRepo)
	postService := service.NewPostService(db, postRepo, mediaService)
	accountService := service.NewAccountService(*cfg, connectionRepo)
	connectService := service.NewConnectService(*cfg, connectionRepo)
	subscriptionService := service.NewSubscriptionService(*cfg, userRepo, subscriptionRepo)

	registry := platform.NewRegistry(*cfg)
	dispatcher := publisher.NewDispatcher(connectionRepo, registry)
	sch := scheduler.NewScheduler(postRepo, connectionRepo, dispatcher)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	account := handlers.NewAccountHandler(accountService, connectService, *cfg)
	app.Get("/auth/:platform", account.AddSocialAccount)
	app.Get("/auth/:platform/callback", account.CallbackHandler)

	payment := handlers.NewPaymentHandler(subscriptionService)
	app.Post("/webhook/subscription", payment.PaymentWebhook)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/submit", post.SubmitForApproval)
	api.Post("/posts/approve", post.ApprovePost)
	api.Post("/posts/reject", post.RejectPost)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/publish", post.PublishNow)
	api.Post("/posts/remove", post.RemovePost)

	// social accounts api routes
	api.Get("/accounts", account.ListSocialAccounts)
	api.Post("/accounts/remove", account.DisconnectAccount)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(connectionRepo, connectService)

	//queue
	queueW := queue.NewQueue(sch)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", sch.Tick)
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishNow, queueW.HandlePublishNowTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
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
