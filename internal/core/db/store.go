package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/solatis/groundskeeper/internal/rules"
	"github.com/solatis/groundskeeper/internal/types"
)

// Invalidator is notified after every committed territory or rule write so
// cached candidate snapshots can be dropped.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(ctx context.Context) error

// Invalidate calls f.
func (f InvalidatorFunc) Invalidate(ctx context.Context) error { return f(ctx) }

// Store is the territory admin store and candidate loader.
type Store struct {
	q           *Queries
	validate    *validator.Validate
	invalidator Invalidator
	log         zerolog.Logger
	now         func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithInvalidator registers a snapshot cache to clear after writes.
func WithInvalidator(inv Invalidator) StoreOption {
	return func(s *Store) { s.invalidator = inv }
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) { s.log = log.With().Str("component", "store").Logger() }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store over loaded queries.
func NewStore(q *Queries, opts ...StoreOption) *Store {
	s := &Store{
		q:        q,
		validate: validator.New(),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Queries exposes the underlying named queries.
func (s *Store) Queries() *Queries {
	return s.q
}

// TerritoryInput is the writable part of a territory.
type TerritoryInput struct {
	Name        string                `json:"name" validate:"required,min=1,max=255"`
	Code        string                `json:"code" validate:"required,min=1,max=64"`
	Description string                `json:"description" validate:"max=2000"`
	Type        types.TerritoryType   `json:"type" validate:"required,oneof=geographic account-based custom"`
	Status      types.TerritoryStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	ParentID    *types.TerritoryID    `json:"parent_id"`
	Boundaries  json.RawMessage       `json:"boundaries"`
	OwnerID     *types.UserID         `json:"owner_id" validate:"omitempty,gt=0"`
}

// RuleInput is the writable part of a rule.
type RuleInput struct {
	RuleType  types.RuleType  `json:"rule_type" validate:"required,oneof=geographic industry account_size custom"`
	FieldName string          `json:"field_name" validate:"required,max=255"`
	Operator  string          `json:"operator" validate:"required"`
	Value     json.RawMessage `json:"value"`
	Priority  int             `json:"priority"`
	IsActive  *bool           `json:"is_active"` // nil means active
}

func (s *Store) validateTerritory(in *TerritoryInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	if len(in.Boundaries) > 0 && !json.Valid(in.Boundaries) {
		return fmt.Errorf("%w: boundaries must be valid JSON", types.ErrValidation)
	}
	return nil
}

// CreateTerritory validates and inserts a territory. Status defaults to active.
func (s *Store) CreateTerritory(ctx context.Context, in TerritoryInput) (*types.Territory, error) {
	if err := s.validateTerritory(&in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = types.StatusActive
	}

	now := NewTimestamp(s.now())
	id := types.NewTerritoryID()

	err := s.q.InTx(ctx, func(tx *Queries) error {
		if err := checkCodeFree(ctx, tx, in.Code, ""); err != nil {
			return err
		}
		if in.ParentID != nil {
			if err := checkParent(ctx, tx, id, *in.ParentID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, "insert-territory",
			id, in.Name, in.Code, in.Description, in.Type, in.Status,
			in.ParentID, rawArg(in.Boundaries), in.OwnerID, now, now)
		if err != nil {
			return fmt.Errorf("insert territory: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.Info().Str("territory_id", string(id)).Str("code", in.Code).Msg("territory created")
	return s.GetTerritory(ctx, id)
}

// UpdateTerritory replaces the writable fields of a live territory. Status
// is left unchanged; use SetTerritoryStatus.
func (s *Store) UpdateTerritory(ctx context.Context, id types.TerritoryID, in TerritoryInput) (*types.Territory, error) {
	if err := s.validateTerritory(&in); err != nil {
		return nil, err
	}

	err := s.q.InTx(ctx, func(tx *Queries) error {
		if _, err := getTerritory(ctx, tx, id); err != nil {
			return err
		}
		if err := checkCodeFree(ctx, tx, in.Code, id); err != nil {
			return err
		}
		if in.ParentID != nil {
			if err := checkParent(ctx, tx, id, *in.ParentID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, "update-territory",
			in.Name, in.Code, in.Description, in.Type, in.ParentID,
			rawArg(in.Boundaries), in.OwnerID, NewTimestamp(s.now()), id)
		if err != nil {
			return fmt.Errorf("update territory: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return s.GetTerritory(ctx, id)
}

// SetTerritoryStatus toggles a territory between active and inactive.
func (s *Store) SetTerritoryStatus(ctx context.Context, id types.TerritoryID, status types.TerritoryStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", types.ErrValidation, status)
	}
	if err := s.execOne(ctx, "set-territory-status", status, NewTimestamp(s.now()), id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info().Str("territory_id", string(id)).Str("status", string(status)).Msg("territory status changed")
	return nil
}

// SoftDeleteTerritory hides a territory from matching and listing. Its rules
// and assignment history are kept.
func (s *Store) SoftDeleteTerritory(ctx context.Context, id types.TerritoryID) error {
	now := NewTimestamp(s.now())
	if err := s.execOne(ctx, "soft-delete-territory", now, now, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info().Str("territory_id", string(id)).Msg("territory soft-deleted")
	return nil
}

// RestoreTerritory clears deleted_at on the soft-deleted territory holding
// code. It returns ErrTerritoryNotFound when no such territory exists.
func (s *Store) RestoreTerritory(ctx context.Context, code string) (*types.Territory, error) {
	if err := s.execOne(ctx, "restore-territory-by-code", NewTimestamp(s.now()), code); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info().Str("code", code).Msg("territory restored")
	return s.GetTerritoryByCode(ctx, code)
}

// PurgeTerritory hard-deletes a territory; rules and assignments cascade,
// children are detached.
func (s *Store) PurgeTerritory(ctx context.Context, id types.TerritoryID) error {
	if err := s.execOne(ctx, "purge-territory", id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Warn().Str("territory_id", string(id)).Msg("territory purged")
	return nil
}

// GetTerritory returns a live territory with all its rules.
func (s *Store) GetTerritory(ctx context.Context, id types.TerritoryID) (*types.Territory, error) {
	t, err := getTerritory(ctx, s.q, id)
	if err != nil {
		return nil, err
	}
	var rows []ruleRow
	if err := s.q.Select(ctx, "list-rules-for-territory", &rows, id); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	for _, r := range rows {
		t.Rules = append(t.Rules, r.toRule())
	}
	return t, nil
}

// GetTerritoryByCode returns a live territory by its unique code, without rules.
func (s *Store) GetTerritoryByCode(ctx context.Context, code string) (*types.Territory, error) {
	var row territoryRow
	err := s.q.Get(ctx, "get-territory-by-code", &row, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: code %s", types.ErrTerritoryNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("get territory: %w", err)
	}
	t := row.toTerritory()
	return &t, nil
}

// ListTerritories returns all live territories ordered by id, without rules.
func (s *Store) ListTerritories(ctx context.Context) ([]types.Territory, error) {
	var rows []territoryRow
	if err := s.q.Select(ctx, "list-territories", &rows); err != nil {
		return nil, fmt.Errorf("list territories: %w", err)
	}
	out := make([]types.Territory, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toTerritory())
	}
	return out, nil
}

// ReplaceRules deletes every rule of a territory and inserts the given set
// in one transaction. Every rule is validated before anything is written.
func (s *Store) ReplaceRules(ctx context.Context, territoryID types.TerritoryID, inputs []RuleInput) ([]types.Rule, error) {
	now := s.now().UTC()
	created := make([]types.Rule, 0, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		if err := s.validate.Struct(in); err != nil {
			return nil, fmt.Errorf("rule %d: %w: %v", i, types.ErrValidation, err)
		}
		active := in.IsActive == nil || *in.IsActive
		r := types.Rule{
			ID:          types.NewRuleID(),
			TerritoryID: territoryID,
			RuleType:    in.RuleType,
			FieldName:   in.FieldName,
			Operator:    in.Operator,
			Value:       in.Value,
			Priority:    in.Priority,
			IsActive:    active,
			CreatedAt:   now,
		}
		if err := rules.Validate(&r); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		created = append(created, r)
	}

	err := s.q.InTx(ctx, func(tx *Queries) error {
		if _, err := getTerritory(ctx, tx, territoryID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "delete-rules-for-territory", territoryID); err != nil {
			return fmt.Errorf("delete rules: %w", err)
		}
		for _, r := range created {
			_, err := tx.Exec(ctx, "insert-rule",
				r.ID, r.TerritoryID, r.RuleType, r.FieldName, r.Operator,
				ruleValueArg(r.Value), r.Priority, r.IsActive, NewTimestamp(r.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert rule: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.log.Info().Str("territory_id", string(territoryID)).Int("rules", len(created)).Msg("territory rules replaced")
	return created, nil
}

// LoadCandidates returns every active, non-deleted territory with its active
// rules attached, using one query for territories and one for rules.
func (s *Store) LoadCandidates(ctx context.Context) ([]types.Territory, error) {
	var territoryRows []territoryRow
	if err := s.q.Select(ctx, "list-candidate-territories", &territoryRows); err != nil {
		return nil, fmt.Errorf("load candidate territories: %w", err)
	}
	var ruleRows []ruleRow
	if err := s.q.Select(ctx, "list-candidate-rules", &ruleRows, true); err != nil {
		return nil, fmt.Errorf("load candidate rules: %w", err)
	}

	out := make([]types.Territory, len(territoryRows))
	index := make(map[types.TerritoryID]int, len(territoryRows))
	for i, r := range territoryRows {
		out[i] = r.toTerritory()
		index[out[i].ID] = i
	}
	for _, r := range ruleRows {
		i, ok := index[types.TerritoryID(r.TerritoryID)]
		if !ok {
			// Territory changed between the two reads.
			continue
		}
		out[i].Rules = append(out[i].Rules, r.toRule())
	}
	return out, nil
}

func (s *Store) execOne(ctx context.Context, name string, args ...interface{}) error {
	res, err := s.q.Exec(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if n == 0 {
		return types.ErrTerritoryNotFound
	}
	return nil
}

func (s *Store) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("snapshot cache invalidation failed")
	}
}

func getTerritory(ctx context.Context, q *Queries, id types.TerritoryID) (*types.Territory, error) {
	var row territoryRow
	err := q.Get(ctx, "get-territory", &row, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrTerritoryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get territory: %w", err)
	}
	t := row.toTerritory()
	return &t, nil
}

// checkCodeFree fails when code belongs to a territory other than self.
// Soft-deleted territories still hold their code.
func checkCodeFree(ctx context.Context, q *Queries, code string, self types.TerritoryID) error {
	var owner string
	err := q.Get(ctx, "get-territory-code-owner", &owner, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check code: %w", err)
	}
	if types.TerritoryID(owner) != self {
		return fmt.Errorf("%w: %s", types.ErrDuplicateCode, code)
	}
	return nil
}

// checkParent verifies parent is live and that making it the parent of id
// does not close a loop.
func checkParent(ctx context.Context, q *Queries, id, parent types.TerritoryID) error {
	if parent == id {
		return types.ErrTerritoryCycle
	}
	if _, err := getTerritory(ctx, q, parent); err != nil {
		if errors.Is(err, types.ErrTerritoryNotFound) {
			return fmt.Errorf("%w: %s", types.ErrParentNotFound, parent)
		}
		return err
	}

	current := parent
	for depth := 0; ; depth++ {
		if depth >= types.MaxTerritoryDepth {
			return fmt.Errorf("%w: ancestry deeper than %d", types.ErrTerritoryCycle, types.MaxTerritoryDepth)
		}
		var next sql.NullString
		err := q.Get(ctx, "get-territory-parent", &next, current)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !next.Valid) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("walk ancestors: %w", err)
		}
		if types.TerritoryID(next.String) == id {
			return types.ErrTerritoryCycle
		}
		current = types.TerritoryID(next.String)
	}
}

func rawArg(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// ruleValueArg stores a missing value as JSON null; the column is NOT NULL.
func ruleValueArg(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
