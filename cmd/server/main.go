// Package main runs the NFT picker service: the persistence endpoint, the grid
// endpoint, WebSocket sessions and the ops endpoints.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"solana-nft-picker/internal/api"
	"solana-nft-picker/internal/config"
	"solana-nft-picker/internal/metadata"
	"solana-nft-picker/internal/observability"
	"solana-nft-picker/internal/persist"
	"solana-nft-picker/internal/pipeline"
	"solana-nft-picker/internal/selection"
	"solana-nft-picker/internal/session"
	"solana-nft-picker/internal/solana"
	"solana-nft-picker/internal/storage"
	"solana-nft-picker/internal/storage/backends"
)

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	cfg, err := config.Load("server", os.Args[1:], os.LookupEnv)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint, solana.WithTimeout(cfg.Solana.RPCTimeout))
	resolver := pipeline.New(rpc, logger.Named("pipeline"),
		metadata.WithFetchTimeout(cfg.Metadata.FetchTimeout),
		metadata.WithWorkers(cfg.Metadata.Workers),
		metadata.WithMaxBodyBytes(cfg.Metadata.MaxBodyBytes),
	).WithCommitment(cfg.Solana.Commitment)

	// The store is opened on first use, so the service starts even when the
	// backend is unreachable.
	stores := storage.NewLazy(backends.Opener(cfg.Store, logger.Named("store")))
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	persistHandler := persist.NewHandler(stores,
		persist.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		persist.WithMaxSelection(cfg.HTTP.MaxSelection),
		persist.WithLogger(logger.Named("persist")),
	)

	persister := selection.NewHTTPPersister(cfg.HTTP.PersistTarget(), &http.Client{Timeout: 30 * time.Second})
	sessions := session.NewHandler(resolver, persister,
		session.WithLogger(logger.Named("session")),
		session.WithAllowedOrigins(cfg.HTTP.AllowedOrigins),
	)

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewServer(api.Options{
			Resolver:       resolver,
			Persist:        persistHandler,
			Session:        sessions,
			Chain:          rpc,
			StoreBackend:   cfg.Store.Backend,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			Logger:         logger.Named("api"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Channel to signal completion
	done := make(chan struct{})
	defer close(done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(cfg.HTTP.ShutdownTimeout + 5*time.Second):
			logger.Error("graceful shutdown timed out, forcing exit", zap.Duration("timeout", cfg.HTTP.ShutdownTimeout))
			os.Exit(1)
		case <-done:
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("rpc_endpoint", rpc.Endpoint()),
			zap.String("store", cfg.Store.Backend),
			zap.Strings("allowed_origins", cfg.HTTP.AllowedOrigins),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	err := srv.Shutdown(shutdownCtx)
	shutdownCancel()

	// If shutdown times out, make sure the server is still shut down.
	_ = srv.Close()
	return err
}
