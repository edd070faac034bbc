package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solatis/groundskeeper/internal/assign"
	"github.com/solatis/groundskeeper/internal/cache"
	"github.com/solatis/groundskeeper/internal/core/api"
	"github.com/solatis/groundskeeper/internal/core/auth"
	"github.com/solatis/groundskeeper/internal/core/config"
	"github.com/solatis/groundskeeper/internal/core/metrics"
	"github.com/solatis/groundskeeper/internal/core/server"
)

func newServeCmd(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC territory service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.config()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host, _ = cmd.Flags().GetString("host")
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			log, err := env.logger(cfg)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	cmd.Flags().Int("port", 50051, "gRPC server port")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set GK_HMAC_SECRET environment variable)")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	h, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer h.Close()
	store := h.store

	var candidates assign.CandidateSource = store
	if h.cache != nil {
		snapshots := cache.NewCachedSource(store, h.cache, m, log)
		h.invalidator = snapshots
		candidates = snapshots
		log.Info().Dur("ttl", cfg.Cache.TTL).Msg("snapshot cache enabled")
	}

	assigner := assign.NewService(candidates, store, assign.NewRecorder(store), m, log)
	service, err := api.NewTerritoryService(assigner, &cfg.Server, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	authenticator := auth.NewAuthenticator(secrets, store.Queries(), log)

	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, authenticator, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errChan := make(chan error, 2)

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	log.Info().
		Str("version", Version).
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("metrics_addr", cfg.Metrics.Addr).
		Msg("starting groundskeeper territory service")
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown failed")
		}
	}
	return grpcServer.Shutdown(shutdownCtx)
}
