// Command nuki-bridge runs the Nuki Smart Lock BLE bridge: it scans for and
// pairs with Nuki locks and openers, serves the HTTP API over them, and
// exposes a small CLI for pairing and one-off lock actions without the HTTP
// front-end running.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nuki-bridge",
		Short: "Bridge between Nuki BLE smart locks/openers and HTTP",
		Long: `nuki-bridge scans for Nuki Smart Lock and Opener devices over Bluetooth
Low Energy, pairs with them, and serves their state and lock actions over
a small HTTP API compatible with the Nuki Bridge HTTP API.

  nuki-bridge serve           # run the bridge and HTTP API
  nuki-bridge pair [address]  # pair a new device (scans if no address given)
  nuki-bridge list            # list paired devices
  nuki-bridge lock [id]       # lock a device (defaults to the first paired)
  nuki-bridge unlock [id]     # unlock a device
  nuki-bridge unlatch [id]    # unlatch a device (door strike / opener)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the bridge configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(),
		newPairCmd(),
		newListCmd(),
		newLockActionCmd("lock", "Lock a device"),
		newLockActionCmd("unlock", "Unlock a device"),
		newLockActionCmd("unlatch", "Unlatch a device"),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
