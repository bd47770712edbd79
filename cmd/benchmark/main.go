package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"imseek/config"
	"imseek/internal/adapter/embedding"
	"imseek/internal/adapter/store"
	"imseek/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding the imseek config")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	runs := flag.Int("n", 5, "Number of timed runs")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"query\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding infrastructure (model connection, index load)")
		fmt.Println("  2. Semantic similarity of the top results")
		fmt.Println("  3. Query latency over repeated runs")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}
	defer embedder.Close()

	st, err := store.NewStorage(cfg.Storage.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}

	engine, err := usecase.NewEngine(embedder, st, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading index: %v\n", err)
		os.Exit(1)
	}
	if !engine.IsIndexed() {
		fmt.Fprintln(os.Stderr, "No index found - run 'imseek index' first")
		os.Exit(1)
	}

	stats := engine.Stats()
	fmt.Println("SEMANTIC IMAGE SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Images indexed: %d\n", stats.Count)
	fmt.Printf("Model: %s (%s)\n", stats.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", stats.Dimension)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	ctx := context.Background()
	var durations []time.Duration
	hits, err := engine.Search(ctx, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	for i := 0; i < *runs; i++ {
		start := time.Now()
		if _, err := engine.Search(ctx, *query, *topK); err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		durations = append(durations, time.Since(start))
	}

	if len(hits) == 0 {
		fmt.Println("No results.")
		return
	}

	fmt.Printf("Top %d semantic matches:\n\n", len(hits))

	totalScore := 0.0
	for i, h := range hits {
		totalScore += h.Score

		rating := "LOW"
		if h.Score > 0.3 {
			rating = "HIGH"
		} else if h.Score > 0.25 {
			rating = "GOOD"
		} else if h.Score > 0.2 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, h.Score, shortPath(h.Path))
	}

	var total, min, max time.Duration
	for i, d := range durations {
		total += d
		if i == 0 || d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	avg := total / time.Duration(len(durations))

	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", totalScore/float64(len(hits)))
	fmt.Printf("  Top-1 similarity:   %.3f\n", hits[0].Score)
	fmt.Printf("LATENCY (%d runs, embed + search):\n", *runs)
	fmt.Printf("  avg %s  min %s  max %s\n", avg, min, max)
}

func shortPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		return strings.Join(parts[len(parts)-2:], "/")
	}
	return path
}
