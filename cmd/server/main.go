package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bonusclub/auth-api/internal/auth"
	"github.com/bonusclub/auth-api/internal/cache"
	"github.com/bonusclub/auth-api/internal/httpapi"
	"github.com/bonusclub/auth-api/internal/model"
	"github.com/bonusclub/auth-api/internal/service/authservice"
	"github.com/bonusclub/auth-api/internal/service/tokenservice"
	"github.com/bonusclub/auth-api/internal/sms"
	"github.com/bonusclub/auth-api/internal/store"
)

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "auth-api").Logger()

	// Pretty logging for local dev
	if env("ENV", "dev") == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	ctx := context.Background()

	pgURL := env("DATABASE_URL", "")
	if pgURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	pool, err := store.Open(ctx, pgURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisDB, err := strconv.Atoi(env("REDIS_DB", "0"))
	if err != nil {
		log.Fatal().Err(err).Msg("REDIS_DB must be an integer")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     env("REDIS_ADDR", "localhost:6379"),
		Password: env("REDIS_PASSWORD", ""),
		DB:       redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	st := store.NewPostgres(pool)
	c := cache.New(rdb)
	codec := auth.NewCodec(env("AUTH_HS256_SECRET", "dev-secret-change-in-production"))

	tokens := tokenservice.New(tokenservice.Deps{Store: st, Cache: c, Codec: codec})
	authSvc := authservice.New(authservice.Deps{
		Store:  st,
		Cache:  c,
		SMS:    sms.LogSender{},
		Tokens: tokens,
	})

	srv := &httpapi.Server{
		Auth:   authSvc,
		Tokens: tokens,
		Codec:  codec,
		Getters: auth.Getters{
			AccessToken: func(ctx context.Context, jti string) (*model.AccessToken, error) {
				return tokens.AccessByJTI(ctx, jti, true)
			},
			User:     authSvc.UserByID,
			Business: authSvc.BusinessByCode,
			Client:   authSvc.ClientByPair,
		},
	}
	if origins := env("ALLOWED_ORIGINS", ""); origins != "" {
		srv.AllowedOrigins = strings.Split(origins, ",")
	}

	httpAddr := env("HTTP_ADDR", ":8080")
	httpServer := &http.Server{
		Addr:         httpAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", httpAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}
