// Package main provides the signer command-line tool for checking and
// re-stamping generated site pages.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"councilreader/internal/config"
	"councilreader/internal/site"
	"councilreader/internal/validator"
	"councilreader/pkg/metadata"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file (default configs/pipeline.yaml if present)")
	siteDir := flag.String("site", "", "Site directory (overrides output.site_path)")
	input := flag.String("input", "", "Re-stamp this single page after a manual edit")
	flag.Parse()

	if *input != "" {
		sign(*input)

		return
	}

	dir := *siteDir
	if dir == "" {
		cfg, _, err := config.LoadOrDefault(*configFile)
		if err != nil {
			log.Fatalf("❌ Failed to load config: %v\n", err)
		}

		dir = cfg.Output.SitePath
	}

	fmt.Printf("🔍 Checking site: %s\n", dir)

	result, err := validator.NewSiteValidator(dir).ValidateSite()
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	fmt.Println(result.String())
	result.PrintErrors()
	result.PrintWarnings()

	if !result.IsValid {
		os.Exit(1)
	}
}

func sign(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("❌ Error reading file: %v\n", err)
	}

	fmt.Printf("📂 Reading: %s (%d bytes)\n", path, len(content))

	if ok, _ := metadata.Verify(string(content)); ok {
		fmt.Println("✅ Stamp already matches, nothing to do")

		return
	}

	signed := metadata.Sign(string(content), site.Generator, time.Now())

	if err := os.WriteFile(filepath.Clean(path), []byte(signed), 0o644); err != nil {
		log.Fatalf("❌ Error writing file: %v\n", err)
	}

	fmt.Printf("✍️  Signed and saved to: %s\n", path)
}
