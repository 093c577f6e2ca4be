package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"

	"StoreScraper/internal/orchestrator"
	"StoreScraper/pkg/config"

	// Plugins register themselves from init.
	_ "StoreScraper/internal/fetcher"
	_ "StoreScraper/internal/parsers"
	_ "StoreScraper/internal/storage"
	_ "StoreScraper/internal/transformers"
)

const logFilePath = "logs/scraper.log"

func main() {
	task := flag.String("task", "scrape", "Task to run: scrape")
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg.GlobalSettings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Running task: %s", *task)

	switch *task {
	case "scrape":
		orchestrator.New(cfg).Run(ctx)
	default:
		log.Fatalf("Unknown task: %s.", *task)
	}
}

// setupLogging applies the configured level and optionally mirrors log
// output to a file.
func setupLogging(settings config.GlobalSettings) {
	level, err := log.ParseLevel(settings.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if !settings.LogToFile {
		return
	}
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		log.WithError(err).Warn("could not create log directory, logging to console only")
		return
	}
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.WithError(err).Warn("could not open log file, logging to console only")
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))
}
