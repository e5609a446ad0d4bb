// Package main is the entry point for the scene viewer client.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/scenestream/sceneviewer/internal/app"
	"github.com/scenestream/sceneviewer/internal/config"
	"github.com/scenestream/sceneviewer/internal/faulttest"
	"github.com/scenestream/sceneviewer/internal/logger"
)

func main() {
	configPath, debug, faultTest := config.ParseClientFlags()

	cfg, err := config.LoadClient(configPath, debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Scene Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if faultTest {
		report, err := faulttest.Run(cfg, "fault_test_results.txt")
		if err != nil {
			logger.Error("fault test failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "fault test failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(report)
		return
	}

	a, err := app.New(cfg, cfg.Loader.StagingDir)
	if err != nil {
		logger.Error("failed to create app", zap.Error(err))
		fmt.Fprintf(os.Stderr, "failed to initialize render context: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Run()

	logger.Info("sceneviewer shut down normally")
}
