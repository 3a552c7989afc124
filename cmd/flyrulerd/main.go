// Command flyrulerd is the simulation daemon of spec.md §6: it loads a
// JSON config, scans and installs every aerodynamic-model plugin under
// ModelRoot, then serves the TCP RPC protocol until interrupted.
//
// Grounded on _examples/mmp-vice/main.go's flag parsing and logger-first
// init order, and cmd/vice/config.go's Load-or-Default config handling,
// adapted from an interactive client to a headless daemon's signal-driven
// shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/WindLX/fly-ruler/config"
	"github.com/WindLX/fly-ruler/core"
	"github.com/WindLX/fly-ruler/log"
	"github.com/WindLX/fly-ruler/plugin"
	"github.com/WindLX/fly-ruler/rpcserver"
)

var (
	configPath = flag.String("config", "", "path to a JSON config file; defaults built in if omitted")
	listenAddr = flag.String("addr", "", "override the configured listen address")
	logLevel   = flag.String("loglevel", "", "override the configured log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fly-ruler: %v\n", err)
			os.Exit(1)
		}
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	lg := log.New(cfg.Log.Level, cfg.Log.Dir, cfg.Log.File)
	defer lg.CatchAndReportCrash()

	registry, err := loadPlugins(cfg, lg)
	if err != nil {
		lg.Errorf("plugin load: %v", err)
		os.Exit(1)
	}

	c := core.New(cfg, registry, lg)
	defer c.Shutdown()

	srv := rpcserver.New(cfg, c, lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	select {
	case <-ctx.Done():
		lg.Infof("signal received, shutting down")
		c.Shutdown()
		<-errCh
	case err := <-errCh:
		if err != nil {
			lg.Errorf("serve: %v", err)
			os.Exit(1)
		}
	}
}

// loadPlugins scans cfg.ModelRoot for one subdirectory per model (spec.md
// §4.2's manifest.json + shared-library layout), loads each, and installs
// it with cfg.InstallArgs. A plugin that fails to load a manifest or
// resolve required symbols is skipped with a warning rather than aborting
// the whole daemon; a plugin that fails Install is kept in the registry in
// its Failed state so GetModelInfos still reports it.
func loadPlugins(cfg config.Config, lg *log.Logger) (*plugin.Registry, error) {
	registry := plugin.NewRegistry()

	entries, err := os.ReadDir(cfg.ModelRoot)
	if err != nil {
		return nil, fmt.Errorf("fly-ruler: reading model root %s: %w", cfg.ModelRoot, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(cfg.ModelRoot, entry.Name())
		desc, err := plugin.LoadDirectory(dir, lg)
		if err != nil {
			lg.Warnf("model %s: load: %v", entry.Name(), err)
			continue
		}
		if err := desc.Install(cfg.InstallArgs); err != nil {
			lg.Warnf("model %s: install: %v", desc.Info.Name, err)
		}
		registry.Add(entry.Name(), desc)
		lg.Infof("model %s: %s (%s)", entry.Name(), desc.Info.Name, desc.State())
	}

	return registry, nil
}
