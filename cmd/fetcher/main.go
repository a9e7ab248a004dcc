// Package main provides the fetcher command: it lists recent portal meetings
// and stores the parsed agendas of the configured meeting types.
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
	limit := flag.Int("limit", 0, "Number of recent meetings to list (overrides config)")
	committee := flag.Int("committee", 0, "Only meetings of this committee id (overrides config)")
	force := flag.Bool("force", false, "Re-fetch meetings that are already stored")
	showUsage := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *showUsage {
		printUsage()
		os.Exit(0)
	}

	cfg, path, err := config.LoadOrDefault(*configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v\n", err)
	}

	if path != "" {
		fmt.Printf("⚙️  Configuration loaded from %s: %s\n", path, cfg)
	} else {
		fmt.Println("⚙️  Using default configuration")
	}

	if *limit > 0 {
		cfg.Crawler.Limit = *limit
	}

	if *committee > 0 {
		cfg.Crawler.CommitteeID = *committee
	}

	if *force {
		cfg.Crawler.Force = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	p, err := pipeline.New(cfg, l)
	if err != nil {
		log.Fatalf("❌ Failed to start: %v\n", err)
	}
	defer p.Close()

	fmt.Println("🕷️  Council Agenda Fetcher")
	fmt.Printf("Portal: %s (listing %d meetings)\n", cfg.Portal.BaseURL, cfg.Crawler.Limit)
	fmt.Printf("Targets: %v\n\n", cfg.Crawler.TargetMeetings)

	row, err := p.Fetch(ctx)
	if err != nil {
		log.Printf("❌ Fetch failed: %v\n", err)
	}

	failures, _ := p.Failures(context.WithoutCancel(ctx))

	fmt.Println()
	fmt.Print(formatter.RunSummary(p.RunID(), []formatter.StageRow{row}))
	fmt.Println()
	fmt.Print(formatter.FailureReport(failures))

	if err != nil {
		os.Exit(1)
	}

	fmt.Println("\n✨ Fetch complete!")
}

func printUsage() {
	fmt.Println("Usage: ./bin/fetcher [OPTIONS]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ./bin/fetcher -config configs/pipeline.yaml")
	fmt.Println("  ./bin/fetcher -limit 5 -force")
}
