package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wheelmarket/listing-service/internal/adapter/cache/redis"
	"github.com/wheelmarket/listing-service/internal/adapter/mailer"
	mongoAdapter "github.com/wheelmarket/listing-service/internal/adapter/mongo"
	natsAdapter "github.com/wheelmarket/listing-service/internal/adapter/nats"
	minioStorage "github.com/wheelmarket/listing-service/internal/adapter/storage/minio"
	"github.com/wheelmarket/listing-service/internal/config"
	"github.com/wheelmarket/listing-service/internal/port/http/handler"
	"github.com/wheelmarket/listing-service/internal/port/http/router"
	"github.com/wheelmarket/listing-service/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	configPath := "config.yaml"
	if cp := os.Getenv("CONFIG_PATH"); cp != "" {
		configPath = cp
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	mongoClient, err := mongoAdapter.NewMongoDBConnection(&cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	logger.Info("Connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	listingRepo := mongoAdapter.NewListingMongoRepository(mongoClient, cfg.Mongo.Database)
	imageRepo := mongoAdapter.NewImageMongoRepository(mongoClient, cfg.Mongo.Database)
	sellerRepo := mongoAdapter.NewSellerMongoRepository(mongoClient, cfg.Mongo.Database)

	objStorage, err := minioStorage.NewMinioStorage(&cfg.MinIO, logger)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	redisClient, err := redis.NewRedisClient(&cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	cacheRepo := redis.NewRedisCacheRepository(redisClient, logger)

	events, err := natsAdapter.NewNATSPublisher(&cfg.NATS, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer events.Close()

	var mail usecase.MailSenderInterface
	if cfg.SMTP.Enabled {
		mail = mailer.NewMailer(&cfg.SMTP)
	}

	quota := usecase.NewQuotaGuard(listingRepo, logger)
	publisher := usecase.NewListingPublisher(listingRepo, imageRepo, sellerRepo, objStorage, quota, events, mail, logger)
	search := usecase.NewListingSearch(listingRepo, imageRepo, logger)
	lifecycle := usecase.NewListingLifecycle(listingRepo, imageRepo, objStorage, quota, cacheRepo, events, logger)
	janitor := usecase.NewJanitor(listingRepo, imageRepo, cacheRepo, events, cfg.Janitor.Grace, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go janitor.Run(ctx, cfg.Janitor.Interval)

	listingHandler := handler.NewListingHandler(publisher, search, lifecycle, sellerRepo, logger)
	mux := router.New(listingHandler, cfg.JWT.Secret, logger)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
}
