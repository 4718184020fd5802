package main

import (
	"fmt"

	"github.com/meridiandb/meridian/pkg/subtree"
	"github.com/meridiandb/meridian/pkg/types"
	"github.com/spf13/cobra"
)

var kvCmd = &cobra.Command{
	Use:   "kv",
	Short: "Read and write a tree's KVStore subtrees",
}

var kvGetCmd = &cobra.Command{
	Use:   "get ROOT_ID SUBTREE KEY",
	Short: "Read a key from a subtree's current merged state",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, subtreeName, key := types.ID(args[0]), args[1], args[2]

		t, err := db.LoadTree(root)
		if err != nil {
			return fmt.Errorf("failed to load tree: %w", err)
		}

		view, err := t.GetSubtreeViewer(subtreeName)
		if err != nil {
			return fmt.Errorf("failed to open subtree: %w", err)
		}

		value, err := view.Get(key)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}

		fmt.Println(value)
		return persistAndClose()
	},
}

var kvSetCmd = &cobra.Command{
	Use:   "set ROOT_ID SUBTREE KEY VALUE",
	Short: "Write a key into a subtree, committing a new signed entry",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, subtreeName, key, value := types.ID(args[0]), args[1], args[2], args[3]
		signingKey, _ := cmd.Flags().GetString("key")
		if signingKey == "" {
			signingKey = cfg.SigningKey
		}

		t, err := db.LoadTree(root)
		if err != nil {
			return fmt.Errorf("failed to load tree: %w", err)
		}

		op, err := t.NewAuthenticatedOperation(signingKey)
		if err != nil {
			return fmt.Errorf("failed to start operation: %w", err)
		}

		store := subtree.NewKVStore(op, subtreeName)
		if err := store.Set(key, value); err != nil {
			return fmt.Errorf("failed to stage write: %w", err)
		}

		id, err := op.Commit()
		if err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}

		if err := persistAndClose(); err != nil {
			return err
		}

		fmt.Printf("✓ Committed entry %s\n", id)
		return nil
	},
}

func init() {
	kvCmd.AddCommand(kvGetCmd)
	kvCmd.AddCommand(kvSetCmd)

	kvSetCmd.Flags().String("key", "", "Signing key name (defaults to the config's signing_key)")
}
