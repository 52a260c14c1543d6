package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongoadapter "github.com/revival-automotive/account-service/internal/adapter/mongo"
	natsadapter "github.com/revival-automotive/account-service/internal/adapter/nats"
	redisadapter "github.com/revival-automotive/account-service/internal/adapter/redis"
	"github.com/revival-automotive/account-service/internal/auth"
	"github.com/revival-automotive/account-service/internal/config"
	"github.com/revival-automotive/account-service/internal/mailer"
	httpport "github.com/revival-automotive/account-service/internal/port/http"
	"github.com/revival-automotive/account-service/internal/registration"
	"github.com/revival-automotive/account-service/internal/repository"
	"github.com/revival-automotive/account-service/internal/session"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.Info("Configuration loaded", zap.Int("port", cfg.Port))

	ctx := context.Background()

	mongoClient, err := mongoadapter.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize MongoDB client", zap.Error(err))
	}
	logger.Info("MongoDB client initialized")

	redisClient, err := redisadapter.NewClient(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	logger.Info("Redis client initialized")

	natsConn, err := natsadapter.NewConnection(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	logger.Info("NATS connection established")

	publisher, err := natsadapter.NewPublisher(natsConn)
	if err != nil {
		logger.Fatal("Failed to create NATS publisher", zap.Error(err))
	}

	db := mongoClient.Database(cfg.MongoDatabase)
	provider := auth.NewMongoProvider(db, logger)
	profileRepo := repository.NewProfileRepository(db, logger)

	var mailSender mailer.Mailer
	if cfg.MailerSendAPIKey != "" {
		mailSender = mailer.NewMailerSendService(
			cfg.MailerSendAPIKey,
			cfg.MailFromEmail,
			cfg.MailFromName,
			cfg.WelcomeTemplateID,
			cfg.OTPTemplateID,
			logger,
		)
		logger.Info("Using MailerSend for outgoing email")
	} else {
		mailSender, err = mailer.NewSMTPMailerService(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUsername,
			cfg.SMTPPassword,
			cfg.MailFromEmail,
			cfg.MailFromName,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize SMTP mailer", zap.Error(err))
		}
		logger.Info("Using SMTP for outgoing email")
	}

	tokens := session.NewTokenStore(redisClient, cfg.JWTSecret, logger)
	reconciler := session.NewReconciler(profileRepo, mailSender, publisher, logger)
	manager := registration.NewManager(provider, profileRepo, mailSender, reconciler, publisher, logger)

	handler := httpport.NewAccountHandler(manager, reconciler, provider, profileRepo, tokens, logger)
	router := httpport.NewRouter(handler, tokens)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Received shutdown signal, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logger.Info("HTTP server stopped")
	}

	natsConn.Close()
	logger.Info("NATS connection closed")

	if err := redisClient.Close(); err != nil {
		logger.Error("Error closing Redis client", zap.Error(err))
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Error("Error disconnecting from MongoDB", zap.Error(err))
	}
	logger.Info("Application stopped")
}
