package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"secretdrop/internal/api"
	"secretdrop/internal/config"
	"secretdrop/internal/infra/health"
	ilog "secretdrop/internal/infra/log"
	"secretdrop/internal/infra/metrics"
	"secretdrop/internal/infra/netutil"
	"secretdrop/internal/infra/runner"
	"secretdrop/internal/infra/version"
	"secretdrop/internal/store"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := ilog.NewLogger(cfg)
	registry := metrics.Init(logger)

	ttl := time.Duration(cfg.Vault.TTLMinutes) * time.Minute

	var vault store.Store
	var memVault *store.MemoryStore
	switch cfg.Vault.Backend {
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("aws config load failed")
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDB.Endpoint != "" {
				o.BaseEndpoint = &cfg.DynamoDB.Endpoint
			}
		})
		vault = store.NewDynamoStore(client, cfg.DynamoDB.Table, ttl)
	default:
		memVault = store.NewMemoryStore(cfg.Vault.MaxMemoryBytes, cfg.Vault.MaxSecretBytes, ttl)
		vault = memVault
	}

	apiServer := api.NewServer(vault, logger, cfg.MaxBodyBytes())

	mux := http.NewServeMux()
	mux.Handle("/api/", api.CORS(apiServer))
	mux.Handle("/stats", apiServer)
	adminCIDRs := netutil.MustParseCIDRs(cfg.Server.AdminAllowCIDRs)
	mux.Handle("/metrics", api.AdminGate(adminCIDRs, metrics.Handler(registry)))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)

	handler := api.RequestID(api.Logger(logger)(mux))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("backend", cfg.Vault.Backend).
		Int("ttl_minutes", cfg.Vault.TTLMinutes).
		Msg("secretdrop started")

	// TTL sweeper for the memory backend; DynamoDB expires natively.
	g := &runner.Group{}
	var sweeperErrCh <-chan error
	if memVault != nil && ttl > 0 {
		interval := time.Duration(cfg.Vault.SweepIntervalSeconds) * time.Second
		sweeperErrCh = g.Go(ctx, func(ctx context.Context) error {
			return memVault.Sweep(ctx, interval)
		})
	}

	health.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case s := <-sigCh:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-sweeperErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("sweeper error")
			health.SetReady(false)
		}
	}

	health.SetReady(false)
	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	g.Wait()
	logger.Info().Msg("shutdown complete")
}
