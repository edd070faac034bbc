package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/groundskeeper/internal/assign"
	"github.com/solatis/groundskeeper/internal/core/metrics"
	"github.com/solatis/groundskeeper/internal/entity"
	"github.com/solatis/groundskeeper/internal/types"
)

type matchOutput struct {
	Matched       bool              `json:"matched"`
	TerritoryID   types.TerritoryID `json:"territory_id,omitempty"`
	TerritoryCode string            `json:"territory_code,omitempty"`
	RuleID        types.RuleID      `json:"rule_id,omitempty"`
	FieldName     string            `json:"field_name,omitempty"`
	FieldValue    any               `json:"field_value,omitempty"`
	Priority      int               `json:"priority,omitempty"`
	Assignment    *types.Assignment `json:"assignment,omitempty"`
}

func newMatchCmd(env *environment) *cobra.Command {
	var (
		doAssign       bool
		assignableType string
		assignableID   int64
	)

	cmd := &cobra.Command{
		Use:   "match <entity.json|->",
		Short: "Evaluate territory rules against a JSON entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.config()
			if err != nil {
				return err
			}
			log, err := env.logger(cfg)
			if err != nil {
				return err
			}

			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			record, err := entity.ParseRecord(data)
			if err != nil {
				return err
			}

			var ref types.AssignableRef
			if doAssign {
				if ref, err = types.ParseAssignableRef(assignableType, assignableID); err != nil {
					return fmt.Errorf("--assign needs --type and --id: %w", err)
				}
			}

			h, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer h.Close()
			store := h.store

			svc := assign.NewService(store, store, assign.NewRecorder(store), metrics.Nop(), log)
			result, err := svc.Match(cmd.Context(), record)
			if err != nil {
				return err
			}

			out := matchOutput{Matched: result.Matched}
			if result.Matched {
				out.TerritoryID = result.Territory.ID
				out.TerritoryCode = result.Territory.Code
				out.RuleID = result.RuleID
				out.FieldName = result.FieldName
				out.FieldValue = result.FieldValue
				out.Priority = result.Priority
			}
			if doAssign && result.Matched {
				if out.Assignment, err = svc.AutoAssign(cmd.Context(), entity.Bind(ref, record)); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&doAssign, "assign", false, "record an automatic assignment for the match")
	cmd.Flags().StringVar(&assignableType, "type", "", "assignable type (lead, organization, person)")
	cmd.Flags().Int64Var(&assignableID, "id", 0, "assignable id")
	return cmd
}
