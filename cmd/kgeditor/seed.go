package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/config"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/database"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/seed"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/store"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

func newSeedCmd(load loader) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the fixture types and instances into the local store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if cfg.Source != config.SourceLocal {
				return errors.New("seed only applies to the local source")
			}

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			ctx := cmd.Context()
			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			if reset {
				if err := database.Truncate(ctx, db); err != nil {
					return err
				}
				slog.Info("local store truncated", "db", cfg.DBPath)
			}

			ids := idnorm.New(cfg.InstancePrefix)
			if err := seed.Seed(ctx, store.New(db, ids, vocab.Default()), ids); err != nil {
				return fmt.Errorf("seed data: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop all data before seeding")
	return cmd
}
