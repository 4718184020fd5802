package main

import (
	"fmt"
	"os"

	"github.com/meridiandb/meridian/pkg/config"
	"github.com/meridiandb/meridian/pkg/database"
	"github.com/meridiandb/meridian/pkg/log"
	"github.com/meridiandb/meridian/pkg/persist"
	"github.com/meridiandb/meridian/pkg/store"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

var (
	cfgPath string
	cfg     *config.Config

	persister *persist.BoltPersister
	db        *database.Database
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "meridian",
	Short:   "Meridian - a content-addressed Merkle-DAG database engine",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("meridian version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "./meridian-data", "Directory holding the bbolt snapshot")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a YAML config file (defaults to <data-dir>/config.yaml)")

	cobra.OnInitialize(initConfig, openStore)

	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(kvCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
	path := cfgPath
	if path == "" {
		path = dataDir + "/config.yaml"
	}

	loaded, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	flags := rootCmd.PersistentFlags()
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		cfg.LogLevel = log.Level(v)
	}
	if flags.Changed("log-json") {
		v, _ := flags.GetBool("log-json")
		cfg.LogJSON = v
	}
	if flags.Changed("data-dir") {
		v, _ := flags.GetString("data-dir")
		cfg.DataDir = v
	}

	log.Init(log.Config{
		Level:      cfg.LogLevel,
		JSONOutput: cfg.LogJSON,
	})
}

// openStore loads any existing bbolt snapshot at cfg.DataDir into a
// fresh in-memory Store and wires up the Database every subcommand
// operates against. Subcommands that mutate state snapshot it back out
// before returning (see persistAndClose).
func openStore() {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data directory: %v\n", err)
		os.Exit(1)
	}

	p, err := persist.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	persister = p

	st := store.New()
	if err := persister.Load(st); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load store: %v\n", err)
		os.Exit(1)
	}
	db = database.New(st)
}

// persistAndClose snapshots the in-memory store back to disk and closes
// the bbolt handle. Called at the end of every subcommand that may have
// mutated the store.
func persistAndClose() error {
	inMem, ok := db.Store().(*store.InMemoryStore)
	if !ok {
		return persister.Close()
	}
	if err := persister.Snapshot(inMem); err != nil {
		persister.Close()
		return fmt.Errorf("failed to persist store: %w", err)
	}
	return persister.Close()
}
