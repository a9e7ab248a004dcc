// Package main provides the summarizer command for agenda attachments and
// meeting videos.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"councilreader/internal/config"
	"councilreader/internal/formatter"
	"councilreader/internal/logger"
	"councilreader/internal/pipeline"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file (default configs/pipeline.yaml if present)")
	job := flag.String("job", pipeline.JobAll, "What to summarize: attachments, videos or all")
	stage := flag.Int("stage", 0, "Attachment stage 1 (high value), 2 (sample) or 3 (remaining); overrides config")
	sample := flag.Int("sample", 0, "Stage 2 sample size (overrides config)")
	showUsage := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *showUsage {
		printUsage()
		os.Exit(0)
	}

	cfg, _, err := config.LoadOrDefault(*configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v\n", err)
	}

	if *stage > 0 {
		cfg.Summarizer.Stage = *stage
	}

	if *sample > 0 {
		cfg.Summarizer.SampleSize = *sample
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid settings: %v\n", err)
	}

	if _, err := config.APIKey(); err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	p, err := pipeline.New(cfg, l)
	if err != nil {
		log.Fatalf("❌ Failed to start: %v\n", err)
	}
	defer p.Close()

	fmt.Println("🤖 Council Document Summarizer")
	fmt.Printf("Job: %s, stage %d, model %s\n\n", *job, cfg.Summarizer.Stage, cfg.Summarizer.Model)

	rows, err := p.Summarize(ctx, *job)
	if err != nil {
		log.Printf("❌ Summarize failed: %v\n", err)
	}

	failures, _ := p.Failures(context.WithoutCancel(ctx))

	fmt.Println()
	fmt.Print(formatter.RunSummary(p.RunID(), rows))
	fmt.Println()
	fmt.Print(formatter.FailureReport(failures))

	if err != nil {
		os.Exit(1)
	}

	fmt.Println("\n✨ Summaries complete!")
}

func printUsage() {
	fmt.Println("Usage: ./bin/summarizer [OPTIONS]")
	fmt.Println()
	fmt.Printf("Requires %s in the environment.\n\n", config.APIKeyEnv)
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ./bin/summarizer -job attachments -stage 1")
	fmt.Println("  ./bin/summarizer -job attachments -stage 2 -sample 25")
	fmt.Println("  ./bin/summarizer -job videos")
}
