package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "kgeditor",
		Short: "Knowledge graph editor backend",
		Long: `kgeditor serves graph instances enriched with the structure of their types,
backed by a remote graph store or a local SQLite store.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./kgeditor.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("source", config.SourceLocal, "graph store backend: local or remote")
	rootCmd.PersistentFlags().String("db", "kgeditor.db", "SQLite database path of the local store")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return nil, err
		}
		level, _ := cfg.Level()
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return cfg, nil
	}

	rootCmd.AddCommand(newServeCmd(load))
	rootCmd.AddCommand(newSeedCmd(load))
	return rootCmd
}

// loader reads the configuration of a command and installs the logger.
type loader func(cmd *cobra.Command) (*config.Config, error)
