package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/groundskeeper/internal/core/db"
	"github.com/solatis/groundskeeper/internal/types"
)

func newTerritoryCmd(env *environment) *cobra.Command {
	territoryCmd := &cobra.Command{
		Use:   "territory",
		Short: "Inspect and administer territories",
	}

	// withStore runs fn against an opened store.
	withStore := func(cmd *cobra.Command, fn func(store *db.Store) error) error {
		cfg, err := env.config()
		if err != nil {
			return err
		}
		log, err := env.logger(cfg)
		if err != nil {
			return err
		}
		h, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer h.Close()
		return fn(h.store)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List live territories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *db.Store) error {
				territories, err := store.ListTerritories(cmd.Context())
				if err != nil {
					return err
				}
				codes := make(map[types.TerritoryID]string, len(territories))
				for _, t := range territories {
					codes[t.ID] = t.Code
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CODE\tNAME\tTYPE\tSTATUS\tPARENT\tID")
				for _, t := range territories {
					parent := "-"
					if t.ParentID != nil {
						parent = codes[*t.ParentID]
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.Code, t.Name, t.Type, t.Status, parent, t.ID)
				}
				return w.Flush()
			})
		},
	}

	status := &cobra.Command{
		Use:   "status <code> <active|inactive>",
		Short: "Activate or deactivate a territory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *db.Store) error {
				t, err := store.GetTerritoryByCode(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return store.SetTerritoryStatus(cmd.Context(), t.ID, types.TerritoryStatus(args[1]))
			})
		},
	}

	var purge bool
	del := &cobra.Command{
		Use:   "delete <code>",
		Short: "Soft-delete a territory (--purge removes it with its rules and assignments)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *db.Store) error {
				t, err := store.GetTerritoryByCode(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if purge {
					return store.PurgeTerritory(cmd.Context(), t.ID)
				}
				return store.SoftDeleteTerritory(cmd.Context(), t.ID)
			})
		},
	}
	del.Flags().BoolVar(&purge, "purge", false, "hard delete, cascading to rules and assignments")

	territoryCmd.AddCommand(list, status, del)
	return territoryCmd
}
