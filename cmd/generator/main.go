// Package main provides the static site generator command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"councilreader/internal/config"
	"councilreader/internal/logger"
	"councilreader/internal/pipeline"
	"councilreader/internal/site"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file (default configs/pipeline.yaml if present)")
	output := flag.String("output", "", "Site output directory (overrides config)")
	serve := flag.Bool("serve", false, "Serve the generated site after rendering")
	addr := flag.String("addr", "", "Preview address (overrides config)")

	flag.Parse()

	cfg, _, err := config.LoadOrDefault(*configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v\n", err)
	}

	if *output != "" {
		cfg.Output.SitePath = *output
	}

	if *addr != "" {
		cfg.Site.PreviewAddr = *addr
	}

	l := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	p, err := pipeline.New(cfg, l)
	if err != nil {
		log.Fatalf("❌ Failed to start: %v\n", err)
	}
	defer p.Close()

	fmt.Println("🌐 Site Generator")

	row, err := p.Generate(context.Background())
	if err != nil {
		log.Fatalf("❌ Generation failed: %v\n", err)
	}

	fmt.Printf("✅ %d pages written, %d unchanged in %s\n", row.Processed, row.Skipped, cfg.Output.SitePath)

	if !*serve {
		return
	}

	fmt.Printf("👀 Previewing at http://%s\n", cfg.Site.PreviewAddr)

	if err := site.NewPreviewServer(cfg.Output.SitePath, p.Records()).Run(cfg.Site.PreviewAddr); err != nil {
		log.Fatalf("❌ Preview server failed: %v\n", err)
	}
}
