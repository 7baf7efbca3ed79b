package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/nukibridge/core/pkg/bleadapter/rigadoble"
	"github.com/nukibridge/core/pkg/bleport"
	"github.com/nukibridge/core/pkg/bridge"
	"github.com/nukibridge/core/pkg/nukiconfig"
)

// pairScanTimeout bounds how long the pair command listens for advertising
// Nuki devices before giving up, on first run with no address argument.
const pairScanTimeout = 10 * time.Second

func newPairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pair [address]",
		Short: "Pair a new Nuki device",
		Long: `Pair a new Nuki device. The lock or opener must already be in pairing
mode (hold its button for 6 seconds until it announces pairing).

If address is omitted, nuki-bridge scans for advertising Nuki devices for
up to 10 seconds. A single match is paired automatically; more than one
match requires specifying the address explicitly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) == 1 {
				address = args[0]
			}
			return runPair(address)
		},
	}
}

func runPair(address string) error {
	log := newLogger()

	cfg, err := nukiconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	loggerFactory := logging.NewDefaultLoggerFactory()
	port := rigadoble.New(cfg.Server.Adapter, loggerFactory)

	if address == "" {
		log.Info("no address given, scanning for advertising Nuki devices...")
		address, err = discoverPairingAddress(port)
		if err != nil {
			return err
		}
		log.Infof("found device at %s", address)
	}

	pub, sec, err := nukiconfig.GenerateBridgeKeys()
	if err != nil {
		return fmt.Errorf("generate bridge keypair: %w", err)
	}

	b := bridge.New(bridge.Config{
		Identity:      bridge.Identity{Name: cfg.Server.Name, AppID: cfg.Server.AppID},
		Port:          port,
		LoggerFactory: loggerFactory,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	defer b.Stop()

	done := make(chan error, 1)
	var paired bridge.DeviceView
	err = b.Pair(ctx, address, pub, sec, func(v bridge.DeviceView, pairErr error) {
		paired = v
		done <- pairErr
	})
	if err != nil {
		return fmt.Errorf("begin pairing: %w", err)
	}

	log.Info("pairing in progress, confirm on the lock if prompted...")
	if err := <-done; err != nil {
		return fmt.Errorf("pairing failed: %w", err)
	}

	log.Infof("paired device %s (nuki id %08x)", address, paired.ID)

	rec, err := b.RecordByAddress(address)
	if err != nil {
		return fmt.Errorf("read paired device record: %w", err)
	}
	cfg.Smartlock = append(cfg.Smartlock, nukiconfig.FromDeviceRecord(rec))
	if err := nukiconfig.Save(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	log.Infof("saved to %s", configPath)
	return nil
}

func discoverPairingAddress(port bleport.Port) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pairScanTimeout)
	defer cancel()

	if err := port.Start(ctx); err != nil {
		return "", fmt.Errorf("start scan: %w", err)
	}
	defer port.Stop(context.Background())

	found := map[string]bool{}
	for {
		select {
		case adv, ok := <-port.Advertisements():
			if !ok {
				return pickAddress(found)
			}
			if _, ok := adv.NukiManufacturerData(); ok {
				found[adv.Address] = true
			}
		case <-ctx.Done():
			return pickAddress(found)
		}
	}
}

func pickAddress(found map[string]bool) (string, error) {
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no advertising Nuki devices found, make sure the lock is in pairing mode")
	case 1:
		for addr := range found {
			return addr, nil
		}
	}
	addrs := make([]string, 0, len(found))
	for addr := range found {
		addrs = append(addrs, addr)
	}
	return "", fmt.Errorf("multiple Nuki devices advertising, specify one explicitly: %v", addrs)
}
