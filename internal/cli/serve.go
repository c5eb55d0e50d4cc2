package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nyaya/internal/adapter/analyzer"
	"nyaya/internal/adapter/cache"
	"nyaya/internal/adapter/store"
	"nyaya/internal/server"
	"nyaya/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API on the configured host and port.

POST /api/v1/answer answers a question; GET /api/v1/documents/{id}
returns a stored judgment; GET /api/v1/stats reports corpus size.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	docs, index, err := store.Open(ctx, cfg.Storage, embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer docs.Close()

	// The bolt backend reloads the snapshot in place when the index
	// build rewrites it, so a long-running server picks up new
	// judgments without a restart.
	if snapIdx, ok := index.(*store.SnapshotIndex); ok && cfg.Storage.WatchSnapshot {
		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()
		if err := snapIdx.Watch(watchCtx, cfg.Storage.SnapshotPath, logger); err != nil {
			logger.Warn("snapshot watch disabled", zap.Error(err))
		}
	}

	providers, err := buildProviders(cmd, cfg.Generation)
	if err != nil {
		return err
	}

	queryCache := cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL())
	retriever := usecase.NewRetrieveUseCase(embedder, index, docs, queryCache, cfg.Retrieve.OversampleFactor, cfg.Retrieve.MinScore)
	health := usecase.NewProviderHealth(cfg.Generation.CooldownInitial(), cfg.Generation.CooldownMax())
	generator := usecase.NewGenerateUseCase(providers, health, cfg.Generation.MaxTokens, cfg.Generation.RequestTimeout(), logger)
	answerer := usecase.NewAnswerUseCase(
		retriever,
		usecase.NewAssembleUseCase(analyzer.NewTokenizer()),
		generator,
		usecase.NewVerifyUseCase(),
		cfg.Retrieve.TopK,
		cfg.Assemble.MaxTokens,
		logger,
	)

	srv := server.NewServer(answerer, docs, index, cfg.Server, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
