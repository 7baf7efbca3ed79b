package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/nukibridge/core/internal/httpapi"
	"github.com/nukibridge/core/pkg/bleadapter/rigadoble"
	"github.com/nukibridge/core/pkg/bridge"
	"github.com/nukibridge/core/pkg/nukiconfig"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	log := newLogger()

	cfg, err := nukiconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := nukiconfig.Save(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	log.Infof("nuki-bridge starting: name=%s app_id=%d adapter=%s", cfg.Server.Name, cfg.Server.AppID, cfg.Server.Adapter)
	log.Infof("access token: %s", cfg.Server.Token)

	loggerFactory := logging.NewDefaultLoggerFactory()
	port := rigadoble.New(cfg.Server.Adapter, loggerFactory)

	b := bridge.New(bridge.Config{
		Identity:      bridge.Identity{Name: cfg.Server.Name, AppID: cfg.Server.AppID},
		Port:          port,
		LoggerFactory: loggerFactory,
	})

	for _, persisted := range cfg.Smartlock {
		rec, err := persisted.ToDeviceRecord()
		if err != nil {
			log.Errorf("skipping device %s: %v", persisted.Address, err)
			continue
		}
		if _, err := b.RegisterDevice(rec); err != nil {
			log.Errorf("registering device %s: %v", persisted.Address, err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	defer b.Stop()

	server := httpapi.New(httpapi.Config{
		Token:         cfg.Server.Token,
		ServerID:      cfg.Server.AppID,
		Bridge:        b,
		LoggerFactory: loggerFactory,
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Infof("serving HTTP API on %s", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(addr) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}
