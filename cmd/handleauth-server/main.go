// Command handleauth-server serves the sign-in, refresh, sign-out and profile
// routes of every enabled role. Configuration comes from the environment and
// an optional .env file; see internal/bootstrap.Settings.
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

	"github.com/MrEthical07/handleAuth/internal/bootstrap"
	"github.com/MrEthical07/handleAuth/metrics/export/prometheus"
	"github.com/MrEthical07/handleAuth/server"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "handleauth-server:", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := bootstrap.LoadSettings()
	if err != nil {
		return err
	}
	logger, err := bootstrap.InitLogger(settings.LogLevel, settings.LogFormat, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	opts := server.Options{Engine: app.Engine, Logger: logger}
	if app.Config.Metrics.Enabled {
		opts.Metrics = prometheus.NewExporter(app.Engine).Handler()
	}
	srv := &http.Server{
		Addr:              settings.WebServer.Addr(),
		Handler:           server.New(opts),
		ReadTimeout:       settings.WebServer.ReadTimeout,
		ReadHeaderTimeout: settings.WebServer.ReadTimeout,
		WriteTimeout:      settings.WebServer.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.WebServer.ShutdownTimeout)
		defer cancel()
		logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if app.KV != nil {
		g.Go(func() error {
			purgeLoop(gctx, app, settings.KV.PurgeInterval, logger)
			return nil
		})
	}

	return g.Wait()
}

// purgeLoop deletes expired rows from the Postgres key-value table until ctx
// is done.
func purgeLoop(ctx context.Context, app *bootstrap.App, every time.Duration, logger zerolog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := app.KV.PurgeExpired(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("purge expired records")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("rows", n).Msg("purged expired records")
			}
		}
	}
}
