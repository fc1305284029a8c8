// Package main is the entry point for the WAR calculator bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pennantware/warbot/pkg/bot"
)

// Version is stamped at build time.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("warbot version %s\n", Version)
		return nil
	}

	cfg, err := bot.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	bot.ConfigureLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building bot: %w", err)
	}
	return b.Run(ctx)
}
