package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/nukibridge/core/pkg/bleadapter/rigadoble"
	"github.com/nukibridge/core/pkg/bridge"
	"github.com/nukibridge/core/pkg/nukiconfig"
)

// deviceSettleTimeout bounds how long a one-off CLI lock/unlock/unlatch
// action may take once it is dispatched.
const deviceSettleTimeout = 15 * time.Second

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List paired devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

func runList() error {
	cfg, err := nukiconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Smartlock) == 0 {
		fmt.Println("no paired devices")
		return nil
	}

	b, cancel, err := openBridge(cfg)
	if err != nil {
		return err
	}
	defer cancel()

	time.Sleep(2 * time.Second)
	for _, v := range b.Devices() {
		name := v.Address
		if v.HasConfig {
			name = v.Config.Name
		}
		fmt.Printf("%-20s %08x  %-14s rssi=%d\n", v.Address, v.ID, name, v.RSSI)
	}
	return nil
}

// openBridge loads every persisted device record and brings the bridge up
// against the real adapter, returning a cancel func the caller must invoke
// (it stops both the bridge and context).
func openBridge(cfg nukiconfig.File) (*bridge.Bridge, func(), error) {
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
			continue
		}
		if _, err := b.RegisterDevice(rec); err != nil {
			return nil, nil, fmt.Errorf("register %s: %w", persisted.Address, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := b.Start(ctx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("start bridge: %w", err)
	}

	return b, func() {
		b.Stop()
		cancel()
	}, nil
}

// firstDeviceID returns the Nuki id of the insertion-order-first paired
// device, for bare "lock"/"unlock"/"unlatch" invocations with no id given.
func firstDeviceID(b *bridge.Bridge) (uint32, error) {
	devices := b.Devices()
	if len(devices) == 0 {
		return 0, fmt.Errorf("no paired devices")
	}
	return devices[0].ID, nil
}
