package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/portalconselheiros/portal/internal/auth"
	"github.com/portalconselheiros/portal/internal/config"
	"github.com/portalconselheiros/portal/internal/db"
	"github.com/portalconselheiros/portal/internal/gateway"
	"github.com/portalconselheiros/portal/internal/livekit"
	"github.com/portalconselheiros/portal/internal/stream"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("gateway encerrado com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	media, err := livekit.NewService(livekit.Config{
		Host:                cfg.LiveKit.Host,
		APIKey:              cfg.LiveKit.APIKey,
		APISecret:           cfg.LiveKit.APISecret,
		RecordingOutputPath: cfg.LiveKit.RecordingOutputPath,
	})
	if err != nil {
		return fmt.Errorf("livekit: %w", err)
	}

	streams := stream.NewRepository(pool)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	handler := gateway.NewHandler(media, streams, cfg.LiveKit.RecordingOutputPath)
	router := gateway.NewRouter(handler, jwtManager, cfg.AllowOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.GatewayPort),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("Gateway de mídia ouvindo em :%d", cfg.GatewayPort)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
