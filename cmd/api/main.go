package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/portalconselheiros/portal/internal/auth"
	"github.com/portalconselheiros/portal/internal/config"
	"github.com/portalconselheiros/portal/internal/conselheiro"
	"github.com/portalconselheiros/portal/internal/db"
	"github.com/portalconselheiros/portal/internal/device"
	"github.com/portalconselheiros/portal/internal/export"
	"github.com/portalconselheiros/portal/internal/facerec"
	internalhttp "github.com/portalconselheiros/portal/internal/http"
	"github.com/portalconselheiros/portal/internal/metrics"
	"github.com/portalconselheiros/portal/internal/reuniao"
	"github.com/portalconselheiros/portal/internal/service"
	"github.com/portalconselheiros/portal/internal/storage"
	"github.com/portalconselheiros/portal/internal/stream"
	"github.com/portalconselheiros/portal/internal/user"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	if err := db.RunMigrations(cfg.DBDSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	users := user.NewRepository(pool)
	conselheiros := conselheiro.NewRepository(pool)
	reunioes := reuniao.NewRepository(pool)
	devices := device.NewRepository(pool)
	streams := stream.NewRepository(pool)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	authService := service.NewAuthService(users, redisClient, jwtManager)

	var uploader storage.Uploader = storage.NoopUploader{}
	if cfg.Storage.Endpoint != "" {
		uploader, err = storage.NewS3Uploader(storage.S3Config{
			Endpoint:     cfg.Storage.Endpoint,
			Region:       cfg.Storage.Region,
			Bucket:       cfg.Storage.Bucket,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			PublicDomain: cfg.Storage.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}

	faceClient, err := facerec.NewClient(cfg.FaceRec.Endpoint)
	if err != nil {
		return fmt.Errorf("facerec: %w", err)
	}
	verifier := facerec.NewService(faceClient, conselheiros, reunioes, cfg.FaceRec.ConfidenceThreshold)
	exports := export.NewService(reunioes, conselheiros)

	registry := metrics.NewRegistry()
	collector := metrics.NewCollector(registry)

	handler := internalhttp.NewRouter(cfg, internalhttp.Deps{
		Pool:         pool,
		Redis:        redisClient,
		AuthService:  authService,
		Conselheiros: conselheiros,
		Reunioes:     reunioes,
		Devices:      devices,
		Streams:      streams,
		Verifier:     verifier,
		Exports:      exports,
		Storage:      uploader,
		Collector:    collector,
		Metrics:      metrics.Handler(registry),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
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
