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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/api"
	"github.com/persistorai/dashsync/internal/config"
	"github.com/persistorai/dashsync/internal/geo"
	"github.com/persistorai/dashsync/internal/logging"
	"github.com/persistorai/dashsync/internal/syncer"
	"github.com/persistorai/dashsync/internal/ws"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync controller and the dashboard gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.WithAPIURL(flagURL))
			if err != nil {
				return err
			}

			log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

// controllerOptions maps configuration onto controller options.
func controllerOptions(cfg *config.Config, log *logrus.Logger) (syncer.Options, error) {
	opts := syncer.Options{
		Debounce:       cfg.Debounce,
		RequestTimeout: cfg.RequestTimeout,
		WarmupTimeout:  cfg.WarmupTimeout,
		WarmupAttempts: cfg.WarmupAttempts,
		WarmupDelay:    cfg.WarmupDelay,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		OnTransition: func(from, to syncer.Phase) {
			log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("sync phase changed")
		},
	}

	if cfg.PollEnabled {
		opts.PollInterval = cfg.PollInterval
	}

	if cfg.PushEnabled() {
		push, err := syncer.NewPushSource(cfg.PushURL.Value(), cfg.PushSubject, log)
		if err != nil {
			return syncer.Options{}, fmt.Errorf("configuring push source: %w", err)
		}
		opts.Push = push
	}

	return opts, nil
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	opts, err := controllerOptions(cfg, log)
	if err != nil {
		return err
	}

	backend := client.New(cfg.APIURL, client.WithUserAgent("dashsync/"+config.Version))
	ctrl := syncer.New(syncer.NewClientBackend(backend), opts, log)

	// appCtx outlives the signal so in-flight work can drain in order.
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(log)
	go hub.Run(appCtx)

	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()
	go api.RelayStates(appCtx, states, hub)

	ctrlErr := make(chan error, 1)
	go func() { ctrlErr <- ctrl.Run(appCtx) }()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(appCtx, &api.RouterDeps{
			Log:         log,
			Sync:        ctrl,
			Hub:         hub,
			Reconciler:  geo.NewReconciler(nil),
			CORSOrigins: cfg.CORSOrigins,
			Version:     config.Version,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"backend": cfg.APIURL,
			"poll":    opts.PollInterval,
			"push":    cfg.PushEnabled(),
		}).Info("dashsync listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err, ok := <-srvErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case err := <-ctrlErr:
		if err != nil {
			runErr = fmt.Errorf("sync controller: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}

	hub.Shutdown()
	cancel()

	select {
	case <-ctrl.Done():
	case <-shutdownCtx.Done():
		log.Warn("sync controller did not stop before the shutdown timeout")
	}

	log.Info("shutdown complete")

	return runErr
}
