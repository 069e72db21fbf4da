package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelhost/internal/backend"
	"modelhost/internal/config"
	"modelhost/internal/engine"
	"modelhost/internal/httpapi"
	"modelhost/internal/logging"
	"modelhost/internal/manager"
	"modelhost/internal/registry"
	"modelhost/internal/sentiment"
	"modelhost/internal/summarizer"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *options, def config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.flags.Addr, "addr", def.Addr, "HTTP listen address")
	f.StringSliceVar(&opts.flags.LoadModels, "load-model", def.LoadModels, "Model to load at startup (repeatable)")
	f.IntVar(&opts.flags.MaxQueueDepth, "max-queue-depth", def.MaxQueueDepth, "Requests allowed to wait per model")
	f.IntVar(&opts.flags.MaxWaitSeconds, "max-wait-seconds", def.MaxWaitSeconds, "Seconds a request may wait for its turn")
	f.IntVar(&opts.flags.DrainTimeoutSeconds, "drain-timeout-seconds", def.DrainTimeoutSeconds, "Seconds unload waits for queued requests")
	f.Int64Var(&opts.flags.InferTimeoutSeconds, "infer-timeout-seconds", def.InferTimeoutSeconds, "Per-request infer timeout (0 disables)")
	f.Int64Var(&opts.flags.MaxBodyBytes, "max-body-bytes", def.MaxBodyBytes, "Maximum request body size")
	f.BoolVar(&opts.flags.CORSEnabled, "cors-enabled", def.CORSEnabled, "Enable CORS")
	f.StringSliceVar(&opts.flags.CORSAllowedOrigins, "cors-allowed-origins", def.CORSAllowedOrigins, "Allowed CORS origins")
	return cmd
}

// newBackends registers every plugin this binary ships.
func newBackends(opener engine.Opener, log zerolog.Logger) (*backend.Registry, error) {
	reg := backend.NewRegistry()
	if err := summarizer.Register(reg, opener, log.With().Str("backend", summarizer.BackendName).Logger()); err != nil {
		return nil, err
	}
	if err := sentiment.Register(reg, opener, log.With().Str("backend", sentiment.BackendName).Logger()); err != nil {
		return nil, err
	}
	return reg, nil
}

func newManager(cfg config.Config, opener engine.Opener, log zerolog.Logger) (*manager.Manager, error) {
	repo, err := registry.Open(cfg.ModelRepository)
	if err != nil {
		return nil, err
	}
	backends, err := newBackends(opener, log)
	if err != nil {
		return nil, err
	}
	return manager.NewWithConfig(manager.ManagerConfig{
		Repository:    repo,
		Backends:      backends,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitSeconds) * time.Second,
		DrainTimeout:  time.Duration(cfg.DrainTimeoutSeconds) * time.Second,
		Logger:        log.With().Str("component", "manager").Logger(),
		Publisher:     manager.LogPublisher{Log: log},
	}), nil
}

func configureHTTP(cfg config.Config, log zerolog.Logger) {
	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetServerVersion(version)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetInferTimeoutSeconds(cfg.InferTimeoutSeconds)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)
}

func serve(parent context.Context, cfg config.Config, log zerolog.Logger) error {
	mgr, err := newManager(cfg, engine.Default, log)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	configureHTTP(cfg, log)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("model_repository", cfg.ModelRepository).Msg("modelhost listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Startup loads run after the listener so liveness answers while weights load.
	go loadModels(ctx, mgr, cfg.LoadModels, log)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	closeCtx, cancelClose := context.WithTimeout(context.Background(), time.Duration(cfg.DrainTimeoutSeconds)*time.Second+shutdownTimeout)
	defer cancelClose()
	return mgr.Close(closeCtx)
}

func loadModels(ctx context.Context, mgr *manager.Manager, ids []string, log zerolog.Logger) {
	for _, id := range ids {
		if err := mgr.Load(ctx, id); err != nil {
			log.Error().Err(err).Str("model", id).Msg("startup load failed")
		}
	}
}
