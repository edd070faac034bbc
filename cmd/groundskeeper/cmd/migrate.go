package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/groundskeeper/internal/core/db"
)

func newMigrateCmd(env *environment) *cobra.Command {
	up := func(cmd *cobra.Command, args []string) error {
		cfg, err := env.config()
		if err != nil {
			return err
		}
		log, err := env.logger(cfg)
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		if err := db.MigrateUp(database); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info().Str("driver", database.DriverName()).Msg("migrations applied")
		return nil
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE:  up,
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending database migrations",
			Args:  cobra.NoArgs,
			RunE:  up,
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := env.config()
				if err != nil {
					return err
				}
				database, err := db.Open(cfg.Database.URL)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer database.Close()

				statuses, err := db.MigrateStatus(database)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT")
				for _, s := range statuses {
					state, at := "pending", "-"
					if s.Applied {
						state = "applied"
						if s.AppliedAt != nil {
							at = s.AppliedAt.UTC().Format(time.RFC3339)
						}
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, state, at)
				}
				return w.Flush()
			},
		},
	)
	return migrateCmd
}
