// Package cli wires the configuration, adapters and use cases behind
// the nyaya commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nyaya/config"
	"nyaya/internal/adapter/embedding"
	"nyaya/internal/adapter/provider"
	"nyaya/internal/port"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nyaya",
	Short: "Nyaya - answer legal questions over Indian court judgments",
	Long: `Nyaya indexes Indian court judgments into a vector store and answers
natural-language legal questions with citations into the retrieved
precedent. Answers are grounded: every assertion carries an anchor
that resolves to a real judgment, and anchors that do not resolve are
stripped before the answer is returned.

Example usage:
  nyaya index ./judgments         # Ingest a judgment corpus
  nyaya ask -q "What constitutes theft under the IPC?"
  nyaya serve                     # Start the HTTP API`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = buildLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./nyaya.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func buildLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	if lc.Debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	if lc.Level != "" {
		level, err := zap.ParseAtomicLevel(lc.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}

// buildEmbedder constructs the configured embedding client.
func buildEmbedder(ec config.EmbeddingConfig) (port.Embedder, error) {
	timeout := ec.Timeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	switch ec.Provider {
	case "", "openai":
		return embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, ec.Dimension, timeout)
	case "jina":
		return embedding.NewJinaEmbedder(ec.APIKeyEnv, ec.Model, ec.Dimension, timeout)
	case "ollama":
		return embedding.NewOllamaEmbedder(ec.Model, ec.BaseURL, ec.Dimension, timeout)
	case "compatible":
		return embedding.NewCompatibleEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL, ec.Dimension, timeout)
	case "mock":
		return embedding.NewMockEmbedder(ec.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", ec.Provider)
	}
}

// buildProviders constructs the generation fallback chain in configured
// order. Providers whose API key is missing are skipped with a warning
// rather than failing startup: the pipeline degrades per query instead.
func buildProviders(cmd *cobra.Command, gc config.GenerationConfig) ([]port.GenerationProvider, error) {
	providers := make([]port.GenerationProvider, 0, len(gc.Providers))
	for _, pc := range gc.Providers {
		p, err := buildProvider(cmd, pc)
		if err != nil {
			logger.Warn("skipping generation provider",
				zap.String("provider", pc.Name),
				zap.Error(err))
			continue
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable generation providers configured")
	}
	return providers, nil
}

func buildProvider(cmd *cobra.Command, pc config.ProviderConfig) (port.GenerationProvider, error) {
	switch pc.Name {
	case "groq":
		return provider.NewGroq(pc.APIKeyEnv, pc.Model)
	case "together":
		return provider.NewTogether(pc.APIKeyEnv, pc.Model)
	case "mistral":
		return provider.NewMistral(pc.APIKeyEnv, pc.Model)
	case "openrouter":
		return provider.NewOpenRouter(pc.APIKeyEnv, pc.Model)
	case "gemini":
		return provider.NewGemini(cmd.Context(), pc.APIKeyEnv, pc.Model)
	default:
		if pc.BaseURL != "" {
			return provider.NewCompatible(pc.Name, pc.APIKeyEnv, pc.Model, pc.BaseURL)
		}
		return nil, fmt.Errorf("unknown generation provider: %s", pc.Name)
	}
}
