package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nyaya/internal/adapter/analyzer"
	"nyaya/internal/adapter/cache"
	"nyaya/internal/adapter/store"
	"nyaya/internal/domain"
	"nyaya/internal/usecase"
)

var (
	askQuestion string
	askLang     string
	askTopK     int
	askCourt    string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a legal question from the indexed corpus",
	Long: `Answer a natural-language legal question using the indexed judgments.
The answer cites the judgments it draws on with [n] anchors; run with
--json to get the citation list and grounding status as JSON.

Examples:
  nyaya ask -q "What constitutes theft under the IPC?"
  nyaya ask -q "चोरी के लिए सजा क्या है?" --lang hi
  nyaya ask -q "anticipatory bail principles" --court "Supreme Court of India" --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().StringVar(&askLang, "lang", "en", "answer language: en or hi")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of judgments to retrieve (default from config)")
	askCmd.Flags().StringVar(&askCourt, "court", "", "restrict retrieval to one court")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	lang := domain.LangEnglish
	switch askLang {
	case "en":
	case "hi":
		lang = domain.LangHindi
	default:
		return fmt.Errorf("unsupported language: %s", askLang)
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

	answer, err := answerer.Answer(ctx, askQuestion, lang, askTopK, domain.Filters{Court: askCourt})
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		out, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		for i, ref := range answer.Citations {
			line := fmt.Sprintf("  [%d] %s", i+1, ref.Title)
			var details []string
			if ref.Court != "" {
				details = append(details, ref.Court)
			}
			if ref.Date != "" {
				details = append(details, ref.Date)
			}
			if len(details) > 0 {
				line += " (" + strings.Join(details, ", ") + ")"
			}
			fmt.Println(line)
		}
	}
	if len(answer.Evidence) > 0 {
		fmt.Println("\nRelevant judgments:")
		for _, ref := range answer.Evidence {
			fmt.Printf("  - %s (%s) score=%.2f\n", ref.Title, ref.Court, ref.Score)
		}
	}
	fmt.Printf("\nGrounding: %s | Confidence: %s\n", answer.Status, answer.Confidence)
	return nil
}
