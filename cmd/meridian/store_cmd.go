package main

import (
	"fmt"

	"github.com/meridiandb/meridian/pkg/store"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and persist the underlying store",
}

var storeSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Force a snapshot of the in-memory store to the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		inMem, ok := db.Store().(*store.InMemoryStore)
		if !ok {
			return fmt.Errorf("store does not support snapshotting")
		}
		if err := persister.Snapshot(inMem); err != nil {
			return fmt.Errorf("failed to snapshot store: %w", err)
		}
		roots, err := db.Store().AllTopLevelRoots()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Snapshot written to %s\n", cfg.DataDir)
		fmt.Printf("  Trees: %d\n", len(roots))
		return persister.Close()
	},
}

var storeLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Report what would be restored from the data directory's snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		roots, err := db.Store().AllTopLevelRoots()
		if err != nil {
			return err
		}
		keys, err := db.ListPrivateKeys()
		if err != nil {
			return err
		}
		fmt.Printf("Snapshot at %s\n", cfg.DataDir)
		fmt.Printf("  Trees: %d\n", len(roots))
		fmt.Printf("  Private keys: %d\n", len(keys))
		return persister.Close()
	},
}

func init() {
	storeCmd.AddCommand(storeSnapshotCmd)
	storeCmd.AddCommand(storeLoadCmd)
}
