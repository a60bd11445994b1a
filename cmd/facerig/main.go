// facerig: face landmark rigging service
// Accepts landmark streams from detectors and returns mesh and object render state
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-facerig/internal/config"
	"github.com/teslashibe/go-facerig/internal/log"
	"github.com/teslashibe/go-facerig/pkg/avatar"
	"github.com/teslashibe/go-facerig/pkg/debug"
	"github.com/teslashibe/go-facerig/pkg/server"
)

func main() {
	configPath := flag.String("config", config.Path(config.DefaultConfigPath), "TOML config file (overrides FACERIG_CONFIG)")
	port := flag.String("port", "", "HTTP port (overrides config and FACERIG_PORT)")
	mode := flag.String("mode", "both", "Default rig mode: mesh, objects, both")
	verbose := flag.Bool("debug", false, "Enable request logging and per-frame tracing")
	watch := flag.Bool("watch", true, "Reload the config file when it changes")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Init("info")
		log.Error("configuration error", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *verbose {
		cfg.Server.LogLevel = "debug"
		cfg.Server.DebugTracking = true
	}

	log.Init(cfg.Server.LogLevel)
	debug.SetEnabled(*verbose)
	debug.SetTracking(cfg.Server.DebugTracking)

	rigMode, err := avatar.ParseMode(*mode)
	if err != nil {
		log.Error("invalid mode", "error", err)
		os.Exit(1)
	}

	srv := server.New(cfg, server.Options{Debug: *verbose, Mode: rigMode})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *watch && cfg.Path != "" {
		go func() {
			err := config.Watch(ctx, cfg.Path, func(next config.Config) {
				next.Server.Port = cfg.Server.Port
				srv.SetConfig(next)
				debug.SetTracking(next.Server.DebugTracking || *verbose)
			}, func(err error) {
				log.Warn("config reload failed", "error", err)
			})
			if err != nil {
				log.Warn("config watch stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", "error", err)
	}
}

// loadConfig falls back to defaults when the default path is absent
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == config.DefaultConfigPath {
		return config.Parse(nil, "")
	}
	return cfg, err
}
