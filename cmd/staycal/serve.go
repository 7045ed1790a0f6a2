package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	grpchealth "staycal/internal/infra/grpc"
	ginserver "staycal/internal/infra/http/gin"
	"staycal/internal/infra/obs"
	"staycal/internal/infra/security"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health, outbox relay and cache invalidation consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger.Error("config load failed", "error", err)
		return err
	}
	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err, "driver", cfg.StoreDriver)
		return err
	}
	defer rt.close(context.Background())

	if err := seed(ctx, rt.listings, cfg.SeedFile, cfg.SeedDemo, logger); err != nil {
		logger.Warn("seeding failed", "error", err)
	}

	health := obs.NewHealth(time.Now(), rt.readiness)
	handlers := ginserver.Handlers{
		Availability:   ginserver.AvailabilityHandler{Queries: rt.buses.Queries, Commands: rt.buses.Commands, Logger: logger},
		Proximity:      ginserver.ProximityHandler{Queries: rt.buses.Queries, Logger: logger},
		AuthMiddleware: ginserver.HostAuth{Keys: security.NewHostKeys(cfg.HostAPIKeys), Logger: logger}.Handle,
		Metrics:        promhttp.HandlerFor(rt.reg, promhttp.HandlerOpts{Registry: rt.reg}),
	}
	server := ginserver.NewServer(ginserver.Options{
		Env:          cfg.Env,
		Addr:         cfg.HTTPAddr,
		RateLimit:    cfg.HTTPRateLimit,
		RateBurst:    cfg.HTTPRateBurst,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, obs.Middleware{Logger: logger}, health, handlers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "driver", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return grpchealth.NewHealthServer(health, 5*time.Second, logger).ListenAndServe(gctx, cfg.GRPCAddr)
	})
	if rt.worker != nil {
		g.Go(func() error { return rt.worker.Run(gctx) })
	}
	if rt.memOutbox != nil {
		g.Go(func() error { return retryFlush(gctx, rt, cfg.OutboxPollInterval) })
	}
	if rt.consumer != nil {
		g.Go(func() error { return rt.consumer.Run(gctx, []string{cfg.CalendarEventsTopic()}) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		logger.Error("server failed", "error", err)
		return err
	}
	logger.Info("staycal stopped")
	return nil
}

// retryFlush republishes records a failed flush left queued.
func retryFlush(ctx context.Context, rt *runtime, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if len(rt.memOutbox.Pending()) == 0 {
				continue
			}
			if err := rt.memOutbox.Flush(ctx); err != nil {
				rt.logger.Warn("outbox flush retry failed", "error", err, "pending", len(rt.memOutbox.Pending()))
			}
		}
	}
}
