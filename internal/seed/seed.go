// Package seed loads territory trees from YAML into the store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/solatis/groundskeeper/internal/core/db"
	"github.com/solatis/groundskeeper/internal/types"
)

//go:embed default.yaml
var defaultSeed []byte

// File is the top level of a seed document.
type File struct {
	Territories []Territory `yaml:"territories"`
}

// Territory is one node of the seed tree. Children inherit it as parent.
type Territory struct {
	Name        string      `yaml:"name"`
	Code        string      `yaml:"code"`
	Type        string      `yaml:"type"`
	Status      string      `yaml:"status"`
	Description string      `yaml:"description"`
	OwnerID     *int64      `yaml:"owner_id"`
	Boundaries  any         `yaml:"boundaries"`
	Rules       []Rule      `yaml:"rules"`
	Children    []Territory `yaml:"children"`
}

// Rule is a seed rule. Value is any YAML value and is stored as JSON.
type Rule struct {
	Type     string `yaml:"type"`
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
	Priority int    `yaml:"priority"`
	Inactive bool   `yaml:"inactive"`
}

// Result counts what a load did.
type Result struct {
	Created  int
	Updated  int
	Restored int
	Rules    int
}

// Store is the subset of *db.Store a load needs.
type Store interface {
	GetTerritoryByCode(ctx context.Context, code string) (*types.Territory, error)
	RestoreTerritory(ctx context.Context, code string) (*types.Territory, error)
	CreateTerritory(ctx context.Context, in db.TerritoryInput) (*types.Territory, error)
	UpdateTerritory(ctx context.Context, id types.TerritoryID, in db.TerritoryInput) (*types.Territory, error)
	SetTerritoryStatus(ctx context.Context, id types.TerritoryID, status types.TerritoryStatus) error
	ReplaceRules(ctx context.Context, id types.TerritoryID, rules []db.RuleInput) ([]types.Rule, error)
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &f, nil
}

// Default returns the built-in territory hierarchy.
func Default() *File {
	var f File
	if err := yaml.Unmarshal(defaultSeed, &f); err != nil {
		panic(fmt.Sprintf("seed: embedded default.yaml: %v", err))
	}
	return &f
}

// Load creates or updates every territory in f, parents before children,
// and replaces each territory's rules with the seeded set. Territories are
// matched by code, so loading the same file twice changes nothing. A
// soft-deleted territory whose code is seeded again is restored.
func Load(ctx context.Context, store Store, f *File, log zerolog.Logger) (Result, error) {
	log = log.With().Str("component", "seed").Logger()
	var res Result
	for i := range f.Territories {
		if err := load(ctx, store, &f.Territories[i], nil, &res, log); err != nil {
			return res, err
		}
	}
	log.Info().Int("created", res.Created).Int("updated", res.Updated).Int("restored", res.Restored).Int("rules", res.Rules).Msg("seed loaded")
	return res, nil
}

func load(ctx context.Context, store Store, node *Territory, parent *types.TerritoryID, res *Result, log zerolog.Logger) error {
	in, err := node.input(parent)
	if err != nil {
		return err
	}
	rules, err := node.ruleInputs()
	if err != nil {
		return err
	}

	var t *types.Territory
	restored := false
	existing, err := store.GetTerritoryByCode(ctx, node.Code)
	if errors.Is(err, types.ErrTerritoryNotFound) {
		// A soft-deleted territory still owns its code.
		existing, err = store.RestoreTerritory(ctx, node.Code)
		restored = err == nil
	}
	switch {
	case err == nil:
		t, err = store.UpdateTerritory(ctx, existing.ID, in)
		if err != nil {
			return fmt.Errorf("update %s: %w", node.Code, err)
		}
		if in.Status != "" && in.Status != existing.Status {
			if err := store.SetTerritoryStatus(ctx, t.ID, in.Status); err != nil {
				return fmt.Errorf("status for %s: %w", node.Code, err)
			}
		}
		if restored {
			log.Info().Str("code", node.Code).Msg("restored soft-deleted territory")
			res.Restored++
		} else {
			res.Updated++
		}
	case errors.Is(err, types.ErrTerritoryNotFound):
		t, err = store.CreateTerritory(ctx, in)
		if err != nil {
			return fmt.Errorf("create %s: %w", node.Code, err)
		}
		res.Created++
	default:
		return fmt.Errorf("lookup %s: %w", node.Code, err)
	}

	if _, err := store.ReplaceRules(ctx, t.ID, rules); err != nil {
		return fmt.Errorf("rules for %s: %w", node.Code, err)
	}
	res.Rules += len(rules)
	log.Debug().Str("code", t.Code).Str("territory_id", string(t.ID)).Int("rules", len(rules)).Msg("territory seeded")

	for i := range node.Children {
		if err := load(ctx, store, &node.Children[i], &t.ID, res, log); err != nil {
			return err
		}
	}
	return nil
}

func (n *Territory) input(parent *types.TerritoryID) (db.TerritoryInput, error) {
	in := db.TerritoryInput{
		Name:        n.Name,
		Code:        n.Code,
		Description: n.Description,
		Type:        types.TerritoryType(n.Type),
		Status:      types.TerritoryStatus(n.Status),
		ParentID:    parent,
	}
	if n.OwnerID != nil {
		owner := types.UserID(*n.OwnerID)
		in.OwnerID = &owner
	}
	if n.Boundaries != nil {
		raw, err := json.Marshal(n.Boundaries)
		if err != nil {
			return in, fmt.Errorf("boundaries for %s: %w", n.Code, err)
		}
		in.Boundaries = raw
	}
	return in, nil
}

func (n *Territory) ruleInputs() ([]db.RuleInput, error) {
	out := make([]db.RuleInput, 0, len(n.Rules))
	for _, r := range n.Rules {
		value, err := json.Marshal(r.Value)
		if err != nil {
			return nil, fmt.Errorf("rule %s on %s: %w", r.Field, n.Code, err)
		}
		active := !r.Inactive
		out = append(out, db.RuleInput{
			RuleType:  types.RuleType(r.Type),
			FieldName: r.Field,
			Operator:  r.Operator,
			Value:     value,
			Priority:  r.Priority,
			IsActive:  &active,
		})
	}
	return out, nil
}
