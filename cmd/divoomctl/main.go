package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"codeberg.org/mutker/divoomctl/internal/config"
	"codeberg.org/mutker/divoomctl/internal/device"
	"codeberg.org/mutker/divoomctl/internal/errors"
	"codeberg.org/mutker/divoomctl/internal/history"
	"codeberg.org/mutker/divoomctl/internal/hostmon"
	"codeberg.org/mutker/divoomctl/internal/logger"
	"codeberg.org/mutker/divoomctl/internal/pid"
	"codeberg.org/mutker/divoomctl/internal/sensors"
	"codeberg.org/mutker/divoomctl/internal/settings"
	"codeberg.org/mutker/divoomctl/internal/syncer"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.EffectiveLogLevel(), logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) && appErr.Code() == errors.ErrAlreadyRunning {
			logger.Fatal().Msg("Another instance is already running")
		}
		logger.Fatal().Err(err).Msg("Failed to write PID file")
	}
	defer pid.Remove()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("Daemon failed")
		os.Exit(1)
	}

	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context) error {
	store, err := settings.NewStore(filepath.Join(cfg.DataDir, "settings"))
	if err != nil {
		return err
	}
	defer store.Close()

	historyCfg := history.DefaultConfig()
	historyCfg.Enabled = cfg.History
	if cfg.HistoryDB != "" {
		historyCfg.DBPath = cfg.HistoryDB
	}

	collector, err := history.NewService(historyCfg)
	if err != nil {
		return err
	}
	defer collector.Close()

	sources, shutdown := buildSources()
	defer shutdown()

	provider := hostmon.NewService(sources...)
	client := device.NewClient()

	syncCfg := syncer.DefaultConfig()
	syncCfg.PushInterval = time.Duration(cfg.Interval) * time.Millisecond

	manager := syncer.NewManager(syncCfg, client, provider, store, collector)
	defer manager.StopAll()

	if err := manager.RestoreAll(ctx); err != nil {
		logger.Warn().Err(err).Msg("Could not restore device sync sessions")
	}

	<-ctx.Done()

	return nil
}

// buildSources assembles the sensor sources. A host without a usable NVIDIA
// driver still runs with host sensors alone.
func buildSources() ([]sensors.Source, func()) {
	sources := []sensors.Source{sensors.NewHostSource()}

	nvml, err := sensors.NewNVMLSource()
	if err != nil {
		logger.Warn().Err(err).Msg("NVIDIA telemetry unavailable, continuing without it")
		return sources, func() {}
	}

	return append(sources, nvml), func() {
		if err := nvml.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down NVML")
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
