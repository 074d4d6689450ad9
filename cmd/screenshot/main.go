package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/screenshot/internal/api/handlers/screenshot"
	"github.com/aliskhannn/screenshot/internal/api/router"
	"github.com/aliskhannn/screenshot/internal/api/server"
	"github.com/aliskhannn/screenshot/internal/browser"
	"github.com/aliskhannn/screenshot/internal/capture"
	"github.com/aliskhannn/screenshot/internal/config"
	"github.com/aliskhannn/screenshot/internal/infra/kafka/consumer"
	"github.com/aliskhannn/screenshot/internal/infra/kafka/producer"
	eventmsg "github.com/aliskhannn/screenshot/internal/kafka/handlers/event"
	"github.com/aliskhannn/screenshot/internal/model"
	"github.com/aliskhannn/screenshot/internal/placeholder"
	"github.com/aliskhannn/screenshot/internal/processor"
	eventrepo "github.com/aliskhannn/screenshot/internal/repository/event"
	"github.com/aliskhannn/screenshot/internal/resolver"
	screenshotsvc "github.com/aliskhannn/screenshot/internal/service/screenshot"
	"github.com/aliskhannn/screenshot/internal/storage/file"
	"github.com/aliskhannn/screenshot/internal/storage/janitor"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Retry strategy for Kafka and cache writes.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Capture pipeline: path resolver, headless browser, orchestrator.
	res := resolver.New(resolver.Options{
		Format:           model.ImageFormat(cfg.Capture.Format),
		DisableScripting: cfg.Capture.DisableScripting,
	})
	launcher := browser.NewLauncher(browser.Options{
		ExecPath:  cfg.Browser.ExecPath,
		NoSandbox: cfg.Browser.NoSandbox,
		Flags:     cfg.Browser.Flags,
	})
	imageProcessor := processor.New()
	orchestrator := capture.New(launcher, imageProcessor, cfg.Capture.StopGrace)

	var opts []screenshotsvc.Option

	// Screenshot cache (MinIO) and its janitor.
	var j *janitor.Janitor
	if cfg.Storage.Enabled {
		storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL, cfg.Storage.TTL)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
		}
		opts = append(opts, screenshotsvc.WithCache(storage, cfg.Storage.Prefix, strategy))

		j = janitor.New(storage, cfg.Storage.Prefix)
		if err := j.Start(ctx, cfg.Storage.JanitorSchedule); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to start cache janitor")
		}
	}

	// Capture events producer.
	var p *producer.Producer
	if cfg.Kafka.Enabled {
		p = producer.New(&cfg.Kafka, strategy)
		opts = append(opts, screenshotsvc.WithPublisher(p))
	}

	// Capture events consumer storing events in PostgreSQL.
	var (
		db *dbpg.DB
		c  *consumer.Consumer
		wg sync.WaitGroup
	)
	if cfg.Kafka.Consume {
		dbOpts := &dbpg.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}

		// Collect slave DSNs for replica connections.
		slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
		for _, s := range cfg.Database.Slaves {
			slaveDSNs = append(slaveDSNs, s.DSN())
		}

		var err error
		db, err = dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, dbOpts)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
		}

		c = consumer.New(&cfg.Kafka, strategy, eventmsg.NewHandler(eventrepo.NewRepository(db)))

		wg.Add(1)
		go c.Consume(ctx, &wg)
	}

	service := screenshotsvc.NewService(res, orchestrator, opts...)
	renderer := placeholder.New(imageProcessor, cfg.Placeholder.Raster)
	h := screenshot.NewHandler(service, renderer, cfg.Server.SuccessMaxAge, cfg.Server.FailureMaxAge)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(h)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("server started")

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Flush pending capture events before closing the producer.
	service.Wait()

	if j != nil {
		j.Stop()
	}

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	if p != nil {
		if err := p.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
		}
	}
	if c != nil {
		if err := c.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
		}
	}

	// Close master and slave databases.
	if db != nil {
		if err := db.Master.Close(); err != nil {
			zlog.Logger.Printf("failed to close master DB: %v", err)
		}
		for i, s := range db.Slaves {
			if err := s.Close(); err != nil {
				zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
			}
		}
	}
}
