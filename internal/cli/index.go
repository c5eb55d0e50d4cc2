package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nyaya/internal/adapter/analyzer"
	"nyaya/internal/adapter/chunker"
	"nyaya/internal/adapter/fs"
	"nyaya/internal/adapter/store"
	"nyaya/internal/usecase"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Ingest a judgment corpus",
	Long: `Ingest judgment files from the given directory: chunk each judgment,
embed the chunks, and commit the vectors to the configured backend.
Judgments already in the store are skipped; the corpus is append-only.

Examples:
  nyaya index ./judgments
  nyaya index /data/corpus --config nyaya.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := rootDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

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

	var committer usecase.VectorCommitter
	if pg, ok := docs.(*store.PostgresStore); ok {
		committer = pg
	} else {
		snapIdx, _ := index.(*store.SnapshotIndex)
		committer = store.NewSnapshotCommitter(cfg.Storage.SnapshotPath, embedder.Dimension(), snapIdx)
	}

	tok := analyzer.NewTokenizer()
	uc := usecase.NewIndexUseCase(
		docs,
		embedder,
		chunker.NewParagraphChunker(cfg.Corpus.ChunkTokens, cfg.Corpus.ChunkOverlap, tok),
		fs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes),
		committer,
		cfg.Embedding.BatchSize,
		true,
	)

	logger.Info("indexing corpus", zap.String("path", path))
	result, err := uc.Index(ctx, path)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("Indexed %d judgments (%d chunks), skipped %d already present.\n",
		result.DocsIndexed, result.ChunksCreated, result.DocsSkipped)
	if len(result.Errors) > 0 {
		fmt.Printf("%d files had errors:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e)
		}
	}
	return nil
}
