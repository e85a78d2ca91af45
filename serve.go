package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/copilot"
	"github.com/proxypal/proxypal/internal/history"
	"github.com/proxypal/proxypal/internal/management"
	"github.com/proxypal/proxypal/internal/proxyconfig"
	"github.com/proxypal/proxypal/internal/requestlog"
	"github.com/proxypal/proxypal/internal/sidecar"
)

const usageSyncEvery = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proxy in the foreground",
	Long: "Starts CLIProxyAPI with the generated configuration and supervises it\n" +
		"until interrupted. Requests are recorded into the local history while\n" +
		"it runs, and copilot-api is started alongside when enabled.",
	Args: cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		log := newLogger(cfg.Debug)
		defer func() { _ = log.Sync() }()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := os.MkdirAll(config.DataDir(), 0o700); err != nil {
			return proxypalError{err, "Could not create the data directory."}
		}
		db, err := history.Open(config.HistoryDBPath())
		if err != nil {
			return proxypalError{err, "Could not open the history database."}
		}
		defer func() { _ = db.Close() }()

		mgmt := management.New(cfg.Port)
		sup := sidecar.New(cfg, mgmt, log)
		watcher := requestlog.NewWatcher(cfg.MainLogPath(), db, log)

		// With file logging the proxy writes main.log and we tail it.
		// Otherwise request lines only exist on the proxy's stdout.
		tailFile := cfg.RequestLogging && cfg.LoggingToFile
		if !tailFile {
			sup.OnLine = watcher.HandleLine
		}

		if _, err := sup.Start(ctx); err != nil {
			return proxypalError{err, "Could not start the proxy."}
		}
		proxyDone := sup.Done()

		var cm *copilot.Manager
		if cfg.Copilot.Enabled {
			cm, err = copilot.NewManager(cfg, log)
			if err != nil {
				log.Warn("copilot support unavailable", zap.Error(err))
			} else if _, err := cm.Start(ctx); err != nil {
				log.Warn("could not start copilot-api", zap.Error(err))
			}
		}

		log.Info("proxypal ready",
			zap.String("endpoint", cfg.Endpoint()),
			zap.String("apiKey", proxyconfig.LocalAPIKey))

		g, ctx := errgroup.WithContext(ctx)
		if tailFile {
			g.Go(func() error {
				if err := watcher.Watch(ctx); err != nil {
					log.Warn("request log not followed", zap.Error(err))
				}
				return nil
			})
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			case <-proxyDone:
				return errors.New("proxy exited unexpectedly")
			}
		})
		g.Go(func() error {
			ticker := time.NewTicker(usageSyncEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := syncUsage(ctx, mgmt, db); err != nil {
						log.Debug("usage sync skipped", zap.Error(err))
					}
				}
			}
		})

		err = g.Wait()

		if cm != nil {
			if _, serr := cm.Stop(); serr != nil {
				log.Warn("could not stop copilot-api", zap.Error(serr))
			}
		}
		if serr := sup.Stop(); serr != nil {
			log.Warn("could not stop the proxy", zap.Error(serr))
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return proxypalError{err, "The proxy stopped unexpectedly."}
		}
		return nil
	},
}
