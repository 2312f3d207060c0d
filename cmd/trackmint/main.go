package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/soundmint-labs/trackmint/internal/config"
	"github.com/soundmint-labs/trackmint/internal/logger"
	"github.com/soundmint-labs/trackmint/internal/runner"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting trackmint",
		zap.String("engine_mode", cfg.EngineMode),
		zap.String("tasks_file", cfg.TasksFile))

	r, err := runner.New(cfg, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize runner", zap.Error(err))
	}
	defer r.Shutdown()

	if err := r.Run(context.Background()); err != nil {
		log.Fatal("Run failed", zap.Error(err))
	}
}
