// Command benchmark probes the retrieval quality of an indexed corpus:
// it checks embedder connectivity, runs a query against the vector
// index, and prints the scored hits so threshold and oversample
// settings can be tuned before serving traffic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"nyaya/config"
	"nyaya/internal/adapter/embedding"
	"nyaya/internal/adapter/store"
	"nyaya/internal/domain"
	"nyaya/internal/port"
	"nyaya/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "directory holding the config and index")
	query := flag.String("q", "", "question to probe")
	topK := flag.Int("k", 10, "number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: benchmark -dir . -q \"punishment for theft\"")
		fmt.Println("\nChecks:")
		fmt.Println("  1. Embedding connectivity (provider reachable, dimension matches)")
		fmt.Println("  2. Retrieval quality (scores vs the similarity threshold)")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding not available: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	docs, index, err := store.Open(ctx, cfg.Storage, embedder.Dimension())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer docs.Close()

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 60))

	start := time.Now()
	probe, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Embedding: model=%s dimension=%d latency=%s\n",
		embedder.ModelName(), len(probe[0]), time.Since(start).Round(time.Millisecond))

	retriever := usecase.NewRetrieveUseCase(embedder, index, docs, nil, cfg.Retrieve.OversampleFactor, cfg.Retrieve.MinScore)

	start = time.Now()
	items, err := retriever.Retrieve(ctx, *query, *topK, domain.Filters{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Retrieval: %d hits above %.2f in %s\n\n",
		len(items), cfg.Retrieve.MinScore, time.Since(start).Round(time.Millisecond))

	if len(items) == 0 {
		fmt.Println("No judgments above the similarity threshold.")
		return
	}
	for i, item := range items {
		fmt.Printf("%2d. %.4f  %s (%s)\n", i+1, item.Score, item.Document.Title, item.Document.Court)
		excerpt := item.Chunk.Text
		if len(excerpt) > 120 {
			excerpt = excerpt[:120] + "..."
		}
		fmt.Printf("            %s\n", excerpt)
	}
}

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
