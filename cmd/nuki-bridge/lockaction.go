package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nukibridge/core/pkg/bridge"
	"github.com/nukibridge/core/pkg/nukiconfig"
)

// newLockActionCmd builds the lock/unlock/unlatch subcommand for use. An
// optional hex device id argument selects which paired device to act on;
// with no argument, the insertion-order-first paired device is used.
func newLockActionCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLockAction(use, args)
		},
	}
}

func runLockAction(action string, args []string) error {
	log := newLogger()

	cfg, err := nukiconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Smartlock) == 0 {
		return fmt.Errorf("no paired devices, run \"nuki-bridge pair\" first")
	}

	b, cancel, err := openBridge(cfg)
	if err != nil {
		return err
	}
	defer cancel()

	// Give the manager a moment to connect and fetch config so an id-less
	// invocation can resolve the insertion-order-first device.
	time.Sleep(3 * time.Second)

	var id uint32
	if len(args) == 1 {
		parsed, err := strconv.ParseUint(args[0], 16, 32)
		if err != nil {
			return fmt.Errorf("invalid device id %q: %w", args[0], err)
		}
		id = uint32(parsed)
	} else {
		id, err = firstDeviceID(b)
		if err != nil {
			return err
		}
	}

	ctx, actionCancel := context.WithTimeout(context.Background(), deviceSettleTimeout)
	defer actionCancel()

	if err := dispatchLockAction(ctx, b, action, id); err != nil {
		return fmt.Errorf("%s %08x: %w", action, id, err)
	}

	log.Infof("%s %08x: ok", action, id)
	return nil
}

func dispatchLockAction(ctx context.Context, b *bridge.Bridge, action string, id uint32) error {
	switch action {
	case "lock":
		return b.Lock(ctx, id)
	case "unlock":
		return b.Unlock(ctx, id)
	case "unlatch":
		return b.Unlatch(ctx, id)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}
