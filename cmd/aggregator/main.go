// Package main provides the aggregator command: it rebuilds every council
// file history from the stored meetings and summaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"councilreader/internal/config"
	"councilreader/internal/formatter"
	"councilreader/internal/logger"
	"councilreader/internal/pipeline"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file (default configs/pipeline.yaml if present)")
	keyPolicy := flag.String("key-policy", "", "Council file grouping: exact or base (overrides config)")
	top := flag.Int("top", 20, "Council files to list in the report (0 lists all)")
	showUsage := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *showUsage {
		fmt.Println("Usage: ./bin/aggregator [OPTIONS]")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, _, err := config.LoadOrDefault(*configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v\n", err)
	}

	if *keyPolicy != "" {
		cfg.Aggregation.KeyPolicy = *keyPolicy
	}

	l := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	p, err := pipeline.New(cfg, l)
	if err != nil {
		log.Fatalf("❌ Failed to start: %v\n", err)
	}
	defer p.Close()

	fmt.Println("🗂️  Council File Aggregator")
	fmt.Printf("Records: %s, key policy: %s\n\n", cfg.Output.BasePath, cfg.Aggregation.KeyPolicy)

	result, _, err := p.Aggregate(context.Background())
	if err != nil {
		log.Fatalf("❌ Aggregation failed: %v\n", err)
	}

	fmt.Print(formatter.IndexReport(result.Index, *top, 60))
	fmt.Printf("\n✅ Wrote %d council files to %s\n", len(result.Files), p.Records().Base())
}
