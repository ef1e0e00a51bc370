package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-api/internal/config"
	"github.com/novamart/novamart-api/internal/domain/auth"
	"github.com/novamart/novamart-api/internal/domain/credit"
	"github.com/novamart/novamart-api/internal/domain/giftcard"
	"github.com/novamart/novamart-api/internal/domain/user"
	"github.com/novamart/novamart-api/internal/middleware"
	"github.com/novamart/novamart-api/internal/pkg/database"
	"github.com/novamart/novamart-api/internal/pkg/jwt"
	"github.com/novamart/novamart-api/internal/pkg/logger"
	pkgresponse "github.com/novamart/novamart-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting NovaMart credits API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	ledgerRepo := credit.NewRepository(db)
	cardRepo := giftcard.NewRepository(db)

	// ---------- Services ----------
	authService := auth.NewService(userRepo, jwtService)
	codeGenerator := giftcard.NewGenerator(cfg.GiftCardCodePrefix, cfg.GiftCardCodeLength)
	cardValidity := time.Duration(cfg.GiftCardValidityDays) * 24 * time.Hour
	creditService := credit.NewService(ledgerRepo, cardRepo, codeGenerator, cardValidity)

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	creditHandler := credit.NewHandler(creditService)
	cardHandler := giftcard.NewHandler(cardRepo)

	authMiddleware := middleware.Auth(jwtService)
	rateLimit := middleware.RateLimit(redis, cfg.MutationRateLimit)
	idempotency := middleware.Idempotency(redis, cfg.IdempotencyWindow)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())
		r.Mount("/credits", creditHandler.Routes(authMiddleware, rateLimit, idempotency))
		r.Mount("/giftcards", cardHandler.Routes(authMiddleware))
		r.Mount("/admin/credits", creditHandler.AdminRoutes(authMiddleware, middleware.RequireAdmin()))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
