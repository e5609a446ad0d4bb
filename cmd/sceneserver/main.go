// Package main is the entry point for the scene content server.
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/scenestream/sceneviewer/internal/config"
	"github.com/scenestream/sceneviewer/internal/contentservice"
	"github.com/scenestream/sceneviewer/internal/logger"
)

func main() {
	configPath, debug := config.ParseServerFlags()

	cfg, err := config.LoadServer(configPath, debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Scene Content Server ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	srv := contentservice.New(cfg.MediaRoot, cfg.ChunkSize, time.Duration(cfg.ChunkDelayMs)*time.Millisecond)

	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to bind", zap.String("addr", addr), zap.Error(err))
		fmt.Fprintf(os.Stderr, "failed to bind %s: %v\n", addr, err)
		os.Exit(1)
	}

	fmt.Printf("listening on %s\n", ln.Addr())
	fmt.Printf("media root: %s\n", cfg.MediaRoot)
	fmt.Printf("chunk size: %d bytes, chunk delay: %d ms\n", cfg.ChunkSize, cfg.ChunkDelayMs)
	logger.Info("sceneserver bound",
		zap.String("addr", ln.Addr().String()),
		zap.String("media_root", cfg.MediaRoot),
		zap.Int("chunk_size", cfg.ChunkSize),
		zap.Int("chunk_delay_ms", cfg.ChunkDelayMs))

	if err := srv.Serve(ln); err != nil {
		logger.Error("server stopped", zap.Error(err))
		fmt.Fprintf(os.Stderr, "server stopped: %v\n", err)
		os.Exit(1)
	}
}
