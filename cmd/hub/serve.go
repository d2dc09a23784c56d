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

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"github.com/ucu-innovators/hub/internal/bootstrap"
	"github.com/ucu-innovators/hub/internal/config"
	"github.com/ucu-innovators/hub/internal/infra/cache"
	mq "github.com/ucu-innovators/hub/internal/infra/queue"
	"github.com/ucu-innovators/hub/internal/modules/handler"
	"github.com/ucu-innovators/hub/internal/modules/repo"
	"github.com/ucu-innovators/hub/internal/modules/service"
	"github.com/ucu-innovators/hub/internal/pkg/authn"
	"github.com/ucu-innovators/hub/internal/router"
	"github.com/ucu-innovators/hub/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	inj := bootstrap.BuildContainer()
	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)
	defer func() { _ = log.Sync() }()

	if _, err := telemetry.SetupTracing(cfg); err != nil {
		log.Sugar().Warnw("tracing disabled", "err", err)
	}
	if _, err := telemetry.SetupMetrics(cfg); err != nil {
		log.Sugar().Warnw("metrics disabled", "err", err)
	}
	if err := telemetry.InitProjectMetrics(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.EnsureAdminExists(ctx,
		do.MustInvoke[repo.UserRepo](inj),
		do.MustInvoke[service.UserService](inj),
		cfg, log,
	); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	engine := router.NewRouter(router.RouterDeps{
		Config:           cfg,
		Log:              log,
		Issuer:           do.MustInvoke[*authn.Issuer](inj),
		ProjectHandler:   do.MustInvoke[*handler.ProjectHandler](inj),
		UserHandler:      do.MustInvoke[*handler.UserHandler](inj),
		AnalyticsHandler: do.MustInvoke[*handler.AnalyticsHandler](inj),
		AssistantHandler: do.MustInvoke[*handler.AssistantHandler](inj),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Sugar().Infow("http server listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Sugar().Errorw("http shutdown", "err", err)
	}
	closeInfra(shutdownCtx, inj, log)
	return nil
}

// closeInfra releases the optional connections. Each one is nil when disabled.
func closeInfra(ctx context.Context, inj *do.Injector, log *zap.Logger) {
	if pub := do.MustInvoke[*mq.Publisher](inj); pub != nil {
		if err := pub.Close(); err != nil {
			log.Sugar().Warnw("close publisher", "err", err)
		}
	}
	if rdb := do.MustInvoke[*redis.Client](inj); rdb != nil {
		if err := cache.Close(rdb); err != nil {
			log.Sugar().Warnw("close redis", "err", err)
		}
	}
	if err := telemetry.ShutdownMetrics(ctx); err != nil {
		log.Sugar().Warnw("shutdown metrics", "err", err)
	}
	if err := telemetry.Shutdown(ctx); err != nil {
		log.Sugar().Warnw("shutdown tracing", "err", err)
	}
}
