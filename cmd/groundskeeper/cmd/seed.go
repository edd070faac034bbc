package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/groundskeeper/internal/seed"
)

func newSeedCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Create or update territories from a YAML tree (built-in hierarchy if no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.config()
			if err != nil {
				return err
			}
			log, err := env.logger(cfg)
			if err != nil {
				return err
			}

			doc := seed.Default()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				if doc, err = seed.Parse(f); err != nil {
					return err
				}
			}

			h, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer h.Close()
			store := h.store

			res, err := seed.Load(cmd.Context(), store, doc, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, restored %d territories; %d rules\n", res.Created, res.Updated, res.Restored, res.Rules)
			return nil
		},
	}
}
