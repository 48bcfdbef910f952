package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shenjiangwei/poolkit/rpcpool"
)

var clientRPCAddr string

func init() {
	allocCmd := &cobra.Command{
		Use:   "alloc <bytes>",
		Short: "Allocate a region on a running poolctl server",
		Args:  cobra.ExactArgs(1),
		RunE:  runAlloc,
	}
	freeCmd := &cobra.Command{
		Use:   "free <addr>",
		Short: "Free a previously allocated region on a running poolctl server",
		Args:  cobra.ExactArgs(1),
		RunE:  runFree,
	}
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a running poolctl server's current counters",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	for _, cmd := range []*cobra.Command{allocCmd, freeCmd, statsCmd} {
		cmd.Flags().StringVar(&clientRPCAddr, "rpc-addr", "127.0.0.1:7420", "address of a running poolctl serve instance")
		rootCmd.AddCommand(cmd)
	}
}

func runAlloc(cmd *cobra.Command, args []string) error {
	var size uint64
	if _, err := fmt.Sscanf(args[0], "%d", &size); err != nil {
		return fmt.Errorf("invalid byte count %q: %w", args[0], err)
	}

	client, err := rpcpool.Dial(clientRPCAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	addr, err := client.Allocate(size)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "allocated %s at 0x%x\n", humanize.Bytes(size), addr)
	return nil
}

func runFree(cmd *cobra.Command, args []string) error {
	var addr uint64
	if _, err := fmt.Sscanf(args[0], "0x%x", &addr); err != nil {
		if _, err2 := fmt.Sscanf(args[0], "%d", &addr); err2 != nil {
			return fmt.Errorf("invalid address %q: %w", args[0], err)
		}
	}

	client, err := rpcpool.Dial(clientRPCAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Free(addr); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "freed 0x%x\n", addr)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	client, err := rpcpool.Dial(clientRPCAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	stats, err := client.Stats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "allocated: %s\n", humanize.Bytes(stats.AllocatedBytes))
	fmt.Fprintf(out, "total:     %s\n", humanize.Bytes(stats.TotalBytes))
	fmt.Fprintf(out, "free blocks: %d\n", stats.FreeBlocks)
	fmt.Fprintf(out, "used blocks: %d\n", stats.UsedBlocks)
	return nil
}
