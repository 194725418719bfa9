package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"connectify-server/internal/config"
	conversationdomain "connectify-server/internal/domain/conversation"
	"connectify-server/internal/domain/delivery"
	messagedomain "connectify-server/internal/domain/message"
	userdomain "connectify-server/internal/domain/user"
	"connectify-server/internal/infrastructure/auth"
	"connectify-server/internal/infrastructure/database"
	"connectify-server/internal/infrastructure/logger"
	"connectify-server/internal/infrastructure/mail"
	"connectify-server/internal/infrastructure/media"
	"connectify-server/internal/infrastructure/observability"
	conversationrepo "connectify-server/internal/infrastructure/repository/conversation"
	messagerepo "connectify-server/internal/infrastructure/repository/message"
	userrepo "connectify-server/internal/infrastructure/repository/user"
	"connectify-server/internal/infrastructure/ws"
	"connectify-server/internal/interfaces/httpserver"
	"connectify-server/internal/interfaces/httpserver/handlers"
)

func main() {
	// Best-effort: a missing .env is fine in containerized setups.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	userRepository := userrepo.NewPostgresRepository(db, log)
	conversationRepository := conversationrepo.NewPostgresRepository(db, log)
	messageRepository := messagerepo.NewPostgresRepository(db, log)

	hub := ws.NewHub(log)
	router := delivery.NewRouter(conversationRepository, hub, log)

	hasher := auth.NewBcryptHasher(0)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, cfg.ServiceName)
	mediaClient := media.NewClient(cfg, log)
	mailer := mail.NewMailer(cfg, log)

	userService := userdomain.NewService(userRepository, hasher, mediaClient, mailer, router, userdomain.Options{
		MaxFailedLogins: cfg.MaxFailedLogins,
		ClientBaseURL:   cfg.ClientBaseURL,
		ResetTokenTTL:   cfg.ResetTokenTTL,
	}, log)
	conversationService := conversationdomain.NewService(conversationRepository, userRepository, mediaClient, router, log)
	messageService := messagedomain.NewService(messageRepository, conversationService, mediaClient, router, log)

	server := httpserver.New(cfg, log, db, handlers.ProviderDeps{
		Users:         userService,
		Conversations: conversationService,
		Messages:      messageService,
		Tokens:        tokens,
		Hub:           hub,
		Registry:      hub,
		Router:        router,
		CookieSecure:  cfg.CookieSecure,
		WSSkipVerify:  cfg.WSInsecureSkipVerify,
	})

	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}
