// Package main provides the unified worker command that runs the whole
// pipeline once, on a schedule, or serves the generated site.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"councilreader/internal/config"
	"councilreader/internal/logger"
	"councilreader/internal/pipeline"
	"councilreader/internal/scheduler"
	"councilreader/internal/site"
)

var version = "dev"

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:     "worker",
		Short:   "Council meeting pipeline: fetch, summarize, aggregate and publish",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML configuration file (default configs/pipeline.yaml if present)")

	rootCmd.AddCommand(runCmd(&configFile))
	rootCmd.AddCommand(scheduleCmd(&configFile))
	rootCmd.AddCommand(previewCmd(&configFile))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, *logger.Logger, error) {
	cfg, used, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid settings: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if used != "" {
		log.Info("⚙️  Configuration loaded", "path", used)
	} else {
		log.Info("⚙️  Using default configuration")
	}

	return cfg, log, nil
}

func runCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every stage once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := runOnce(ctx, cfg, log)
			if report != nil {
				fmt.Println()
				fmt.Print(report.String())
			}

			return err
		},
	}
}

func scheduleCmd(configFile *string) *cobra.Command {
	var (
		immediate bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on the configured cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configFile)
			if err != nil {
				return err
			}

			if cfg.Schedule.Cron == "" {
				return fmt.Errorf("schedule.cron is empty")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := scheduler.New(cfg.Schedule.Timezone, log, timeout)
			if err != nil {
				return err
			}

			job := func(ctx context.Context) error {
				report, err := runOnce(ctx, cfg, log)
				if report != nil {
					log.Info("📊 Run report\n" + report.String())
				}

				return err
			}

			if err := s.AddJob("pipeline", cfg.Schedule.Cron, job); err != nil {
				return err
			}

			if immediate {
				if err := s.RunNow(ctx, "pipeline", job); err != nil {
					log.Error("❌ Initial run failed", "error", err)
				}
			}

			s.Start()
			log.Info("⏰ Scheduler running", "cron", cfg.Schedule.Cron, "timezone", cfg.Schedule.Timezone)

			<-ctx.Done()

			log.Info("🛑 Stopping scheduler, waiting for the running job")
			<-s.Stop().Done()

			return nil
		},
	}

	cmd.Flags().BoolVar(&immediate, "now", false, "Also run once at startup")
	cmd.Flags().DurationVar(&timeout, "timeout", 6*time.Hour, "Upper bound on one run")

	return cmd
}

func previewCmd(configFile *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve the generated site and record API locally",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(*configFile)
			if err != nil {
				return err
			}

			p, err := pipeline.New(cfg, log)
			if err != nil {
				return err
			}
			defer p.Close()

			if addr == "" {
				addr = cfg.Site.PreviewAddr
			}

			log.Info("🌐 Serving site", "dir", cfg.Output.SitePath, "addr", "http://"+addr)

			return site.NewPreviewServer(cfg.Output.SitePath, p.Records()).Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides site.preview_addr)")

	return cmd
}

// runOnce builds a fresh pipeline, so every run gets its own run id.
func runOnce(ctx context.Context, cfg *config.Config, log *logger.Logger) (*pipeline.Report, error) {
	p, err := pipeline.New(cfg, log)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return p.Run(ctx)
}
