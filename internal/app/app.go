// Package app wires configuration, the account store, the authentication
// service, the optional metrics endpoint and the authctl REPL together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/cli"
	"github.com/dmitrijs2005/skillauth/internal/logging"
	"github.com/dmitrijs2005/skillauth/internal/server/config"
	"github.com/dmitrijs2005/skillauth/internal/server/metrics"
	"github.com/dmitrijs2005/skillauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/skillauth/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config        *config.Config
	logger        logging.Logger
	store         *repomanager.Store
	service       *services.AuthService
	registry      *prometheus.Registry
	metricsServer *http.Server
	in            io.Reader
	out           io.Writer
}

// NewApp validates c, opens the store and builds the service. Logs go to
// stderr as JSON; the REPL talks over stdin and stdout.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdin, os.Stdout, logging.NewJSONLogger(os.Stderr, logging.ParseLevel(c.LogLevel)))
}

func newApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	store, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, store: store, in: in, out: out}

	opts := []services.Option{services.WithLogger(logger)}
	if c.MetricsAddr != "" {
		app.registry = prometheus.NewRegistry()
		opts = append(opts, services.WithMetrics(metrics.NewAuthMetrics(app.registry)))

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(app.registry))
		app.metricsServer = &http.Server{Addr: c.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}
	app.service = services.NewAuthService(store.Accounts, c, opts...)

	return app, nil
}

// Service exposes the wired authentication service.
func (app *App) Service() *services.AuthService {
	return app.service
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startMetricsServer(ctx context.Context) {
	app.logger.Info(ctx, "metrics endpoint listening", "addr", app.config.MetricsAddr)
	if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "metrics server failed", "error", err)
	}
}

// Run serves the REPL until it exits or a signal arrives, then stops the
// metrics endpoint and closes the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.config.DatabaseDriver)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	if app.metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx)
		}()
	}

	cli.NewApp(app.service, app.in, app.out, app.logger).Run(ctx)

	app.shutdown(ctx)
	wg.Wait()
}

func (app *App) shutdown(ctx context.Context) {
	if app.metricsServer != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := app.metricsServer.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "metrics server shutdown failed", "error", err)
		}
	}
	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "closing store failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
