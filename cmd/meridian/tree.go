package main

import (
	"fmt"

	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/types"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Manage trees",
}

var treeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		settings := crdt.NewKVNested()
		if name != "" {
			settings.SetString("name", name)
		}

		t, err := db.NewTree(settings)
		if err != nil {
			return fmt.Errorf("failed to create tree: %w", err)
		}

		if err := persistAndClose(); err != nil {
			return err
		}

		fmt.Printf("✓ Tree created\n")
		fmt.Printf("  Root ID: %s\n", t.RootID())
		if name != "" {
			fmt.Printf("  Name: %s\n", name)
		}
		return nil
	},
}

var treeInfoCmd = &cobra.Command{
	Use:   "info ROOT_ID",
	Short: "Display tree information",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := db.LoadTree(types.ID(args[0]))
		if err != nil {
			return fmt.Errorf("failed to load tree: %w", err)
		}

		fmt.Printf("Tree: %s\n", t.RootID())
		if name, err := t.Name(); err == nil {
			fmt.Printf("  Name: %s\n", name)
		}

		tips, err := t.Tips()
		if err != nil {
			return fmt.Errorf("failed to read tips: %w", err)
		}
		fmt.Printf("  Tips: %d\n", len(tips))
		for _, tip := range tips {
			fmt.Printf("    - %s\n", tip)
		}

		settings, err := t.Settings()
		if err != nil {
			return fmt.Errorf("failed to read settings: %w", err)
		}
		keys := settings.GetAllKeys()
		fmt.Printf("  Auth keys: %d\n", len(keys))
		for id, key := range keys {
			fmt.Printf("    - %s (status=%s)\n", id, key.Status)
		}

		return persistAndClose()
	},
}

var treeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all trees in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		trees, err := db.AllTrees()
		if err != nil {
			return fmt.Errorf("failed to list trees: %w", err)
		}

		if len(trees) == 0 {
			fmt.Println("No trees found")
			return persistAndClose()
		}

		fmt.Printf("%-70s %s\n", "ROOT ID", "NAME")
		for _, t := range trees {
			name, err := t.Name()
			if err != nil {
				name = "<unnamed>"
			}
			fmt.Printf("%-70s %s\n", t.RootID(), name)
		}
		return persistAndClose()
	},
}

func init() {
	treeCmd.AddCommand(treeCreateCmd)
	treeCmd.AddCommand(treeInfoCmd)
	treeCmd.AddCommand(treeListCmd)

	treeCreateCmd.Flags().String("name", "", "Tree name, recorded in _settings")
}
