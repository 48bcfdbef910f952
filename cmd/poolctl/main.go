// Command poolctl is a small operator CLI over a pool.RegionPool: serve
// it over RPC, drive it remotely, or run a bounded correctness demo.
// Shaped after hivekit's cmd/hivectl — one cobra root, subcommands
// registered via init, viper-backed flags for the server's pool settings.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "poolctl",
	Short: "Operate a poolkit memory pool",
	Long: `poolctl drives a poolkit memory pool: run it as an RPC server,
allocate and free regions against a running server, print its current
counters, or run a bounded, self-checking allocate/free demo.`,
	Version: "0.1.0",
}
