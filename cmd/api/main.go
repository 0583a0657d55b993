package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/datasprint/datasprint-api/internal/config"
	"github.com/datasprint/datasprint-api/internal/database"
	"github.com/datasprint/datasprint-api/internal/handler"
	"github.com/datasprint/datasprint-api/internal/middleware"
	"github.com/datasprint/datasprint-api/internal/models"
	"github.com/datasprint/datasprint-api/internal/repository"
	"github.com/datasprint/datasprint-api/internal/router"
	"github.com/datasprint/datasprint-api/internal/service"
	cloud "github.com/datasprint/datasprint-api/pkg/cloudinary"
	"github.com/datasprint/datasprint-api/pkg/drive"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Challenge{}, &models.Submission{}, &models.User{}, &models.AcceptedChallenge{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := newFileStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to create storage client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	challengeRepo := repository.NewChallengeRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	eventService := service.NewEventService(redisClient, natsConn, "datasprint", logger)
	eventService.Start(ctx)

	leaderboardService := service.NewLeaderboardService(userRepo, challengeRepo, redisClient, cfg.LeaderboardCacheTTL, cfg.AdminEmail, logger)
	uploadService := service.NewUploadService(storage, cfg.StorageProvider, cfg.UploadMaxMB, cfg.UploadTimeout, logger)
	challengeService := service.NewChallengeService(challengeRepo, validate, eventService, leaderboardService, logger)
	userService := service.NewUserService(userRepo, challengeRepo, validate, eventService, leaderboardService, cfg.JWTSecret, cfg.JWTTTL, cfg.AdminEmail, logger)
	submissionService := service.NewSubmissionService(submissionRepo, challengeRepo, userRepo, uploadService, validate, eventService, leaderboardService, logger)
	exportService := service.NewExportService(submissionRepo, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) << 20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		UploadHandler:          handler.NewUploadHandler(uploadService, logger),
		ChallengeHandler:       handler.NewChallengeHandler(challengeService, userService, submissionService, logger),
		SubmissionHandler:      handler.NewSubmissionHandler(submissionService, logger),
		AdminSubmissionHandler: handler.NewAdminSubmissionHandler(submissionService, exportService, logger),
		UserHandler:            handler.NewUserHandler(userService, logger),
		LeaderboardHandler:     handler.NewLeaderboardHandler(leaderboardService, logger),
		EventHandler:           handler.NewEventHandler(eventService, 30*time.Second, logger),
		JWTMiddleware:          middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

func newFileStorage(ctx context.Context, cfg config.Config, logger zerolog.Logger) (service.FileStorage, error) {
	switch cfg.StorageProvider {
	case config.StorageProviderCloudinary:
		storage, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
		if err != nil {
			return nil, err
		}
		return storage, nil
	default:
		storage, err := drive.New(ctx, drive.Config{
			Credentials: drive.Credentials{
				Type:                cfg.Drive.Type,
				ProjectID:           cfg.Drive.ProjectID,
				PrivateKeyID:        cfg.Drive.PrivateKeyID,
				PrivateKey:          cfg.Drive.PrivateKey,
				ClientEmail:         cfg.Drive.ClientEmail,
				ClientID:            cfg.Drive.ClientID,
				AuthURI:             cfg.Drive.AuthURI,
				TokenURI:            cfg.Drive.TokenURI,
				AuthProviderCertURL: cfg.Drive.AuthProviderCertURL,
				ClientCertURL:       cfg.Drive.ClientCertURL,
			},
			FolderID: cfg.DriveFolderID,
		}, logger)
		if err != nil {
			return nil, err
		}
		return storage, nil
	}
}
