package api

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/groundskeeper/internal/assign"
	"github.com/solatis/groundskeeper/internal/core/auth"
	"github.com/solatis/groundskeeper/internal/core/config"
	"github.com/solatis/groundskeeper/internal/core/db"
	"github.com/solatis/groundskeeper/internal/core/db/dbtest"
	"github.com/solatis/groundskeeper/internal/core/metrics"
	"github.com/solatis/groundskeeper/internal/types"
)

type fixture struct {
	store *db.Store
	svc   *TerritoryService
	na    *types.Territory
	usNE  *types.Territory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := dbtest.NewStore(t)

	na, err := store.CreateTerritory(ctx, db.TerritoryInput{Name: "North America", Code: "NA", Type: types.TerritoryGeographic})
	require.NoError(t, err)
	_, err = store.ReplaceRules(ctx, na.ID, []db.RuleInput{
		{RuleType: types.RuleGeographic, FieldName: "country", Operator: "in", Value: []byte(`["US","CA","MX"]`), Priority: 1},
	})
	require.NoError(t, err)

	parent := na.ID
	usNE, err := store.CreateTerritory(ctx, db.TerritoryInput{Name: "US Northeast", Code: "US-NE", Type: types.TerritoryGeographic, ParentID: &parent})
	require.NoError(t, err)
	_, err = store.ReplaceRules(ctx, usNE.ID, []db.RuleInput{
		{RuleType: types.RuleGeographic, FieldName: "state", Operator: "in", Value: []byte(`["NY","MA","PA","NJ","CT"]`), Priority: 10},
	})
	require.NoError(t, err)

	assigner := assign.NewService(store, store, assign.NewRecorder(store), metrics.Nop(), zerolog.Nop())
	cfg := config.DefaultConfig().Server
	cfg.MaxBatchSize = 3
	svc, err := NewTerritoryService(assigner, &cfg, zerolog.Nop())
	require.NoError(t, err)

	return &fixture{store: store, svc: svc, na: na, usNE: usNE}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return st
}

func TestMatchEntity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.MatchEntity(ctx, mustStruct(t, map[string]any{
		"entity": map[string]any{"state": "NY", "country": "US"},
	}))
	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, true, fields["matched"])
	assert.Equal(t, "US-NE", fields["territory_code"])
	assert.Equal(t, string(f.usNE.ID), fields["territory_id"])
	assert.Equal(t, float64(10), fields["priority"])

	resp, err = f.svc.MatchEntity(ctx, mustStruct(t, map[string]any{
		"entity": map[string]any{"country": "DE"},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"matched": false}, resp.AsMap())

	_, err = f.svc.MatchEntity(ctx, mustStruct(t, map[string]any{"entity": "not an object"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	history, err := f.store.ListAssignments(ctx, types.LeadRef{ID: 1})
	require.NoError(t, err)
	assert.Empty(t, history, "match never records")
}

func TestAssignEntity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.AssignEntity(ctx, mustStruct(t, map[string]any{
		"assignable_type": "lead",
		"assignable_id":   17,
		"entity":          map[string]any{"state": "TX", "country": "US"},
	}))
	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, true, fields["matched"])
	assert.Equal(t, string(f.na.ID), fields["territory_id"])
	assert.Equal(t, "automatic", fields["assignment_type"])
	assert.Nil(t, fields["assigned_by"])

	current, err := f.store.CurrentAssignment(ctx, types.LeadRef{ID: 17})
	require.NoError(t, err)
	assert.Equal(t, f.na.ID, current.TerritoryID)

	resp, err = f.svc.AssignEntity(ctx, mustStruct(t, map[string]any{
		"assignable_type": "lead",
		"assignable_id":   18,
		"entity":          map[string]any{"country": "JP"},
	}))
	require.NoError(t, err)
	assert.Equal(t, false, resp.AsMap()["matched"])
}

func TestAssignEntity_InvalidReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  map[string]any
	}{
		{"unknown type", map[string]any{"assignable_type": "deal", "assignable_id": 1, "entity": map[string]any{}}},
		{"missing id", map[string]any{"assignable_type": "lead", "entity": map[string]any{}}},
		{"fractional id", map[string]any{"assignable_type": "lead", "assignable_id": 1.5, "entity": map[string]any{}}},
		{"zero id", map[string]any{"assignable_type": "lead", "assignable_id": 0, "entity": map[string]any{}}},
		{"missing entity", map[string]any{"assignable_type": "lead", "assignable_id": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AssignEntity(ctx, mustStruct(t, tt.req))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestManualAssign(t *testing.T) {
	f := newFixture(t)
	ctx := auth.WithUserID(context.Background(), 99)

	resp, err := f.svc.ManualAssign(ctx, mustStruct(t, map[string]any{
		"assignable_type": "organization",
		"assignable_id":   5,
		"territory_id":    string(f.usNE.ID),
	}))
	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, "manual", fields["assignment_type"])
	assert.Equal(t, float64(99), fields["assigned_by"])

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := f.svc.ManualAssign(context.Background(), mustStruct(t, map[string]any{
			"assignable_type": "organization", "assignable_id": 5, "territory_id": string(f.usNE.ID),
		}))
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("malformed territory id", func(t *testing.T) {
		_, err := f.svc.ManualAssign(ctx, mustStruct(t, map[string]any{
			"assignable_type": "organization", "assignable_id": 5, "territory_id": "US-NE",
		}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("unknown territory", func(t *testing.T) {
		_, err := f.svc.ManualAssign(ctx, mustStruct(t, map[string]any{
			"assignable_type": "organization", "assignable_id": 5, "territory_id": string(types.NewTerritoryID()),
		}))
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("inactive territory", func(t *testing.T) {
		require.NoError(t, f.store.SetTerritoryStatus(context.Background(), f.na.ID, types.StatusInactive))
		_, err := f.svc.ManualAssign(ctx, mustStruct(t, map[string]any{
			"assignable_type": "organization", "assignable_id": 5, "territory_id": string(f.na.ID),
		}))
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})
}

func TestAssignmentHistory(t *testing.T) {
	f := newFixture(t)
	ctx := auth.WithUserID(context.Background(), 3)

	_, err := f.svc.AssignEntity(ctx, mustStruct(t, map[string]any{
		"assignable_type": "person", "assignable_id": 8,
		"entity": map[string]any{"state": "MA", "country": "US"},
	}))
	require.NoError(t, err)
	_, err = f.svc.ManualAssign(ctx, mustStruct(t, map[string]any{
		"assignable_type": "person", "assignable_id": 8, "territory_id": string(f.na.ID),
	}))
	require.NoError(t, err)

	resp, err := f.svc.AssignmentHistory(ctx, mustStruct(t, map[string]any{
		"assignable_type": "person", "assignable_id": 8,
	}))
	require.NoError(t, err)

	list, ok := resp.AsMap()["assignments"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	newest := list[0].(map[string]any)
	oldest := list[1].(map[string]any)
	assert.Equal(t, "manual", newest["assignment_type"])
	assert.Equal(t, string(f.na.ID), newest["territory_id"])
	assert.Equal(t, "automatic", oldest["assignment_type"])
	assert.Equal(t, string(f.usNE.ID), oldest["territory_id"])
}

func TestReassignEntities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := func(id int, entity map[string]any) any {
		return map[string]any{"assignable_type": "lead", "assignable_id": id, "entity": entity}
	}

	resp, err := f.svc.ReassignEntities(ctx, mustStruct(t, map[string]any{
		"entities": []any{
			item(1, map[string]any{"state": "NY", "country": "US"}),
			item(2, map[string]any{"country": "CA"}),
			item(3, map[string]any{"country": "FR"}),
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"assigned": float64(2), "unmatched": float64(1), "failed": float64(0)}, resp.AsMap())

	t.Run("batch limit", func(t *testing.T) {
		_, err := f.svc.ReassignEntities(ctx, mustStruct(t, map[string]any{
			"entities": []any{item(1, nil), item(2, nil), item(3, nil), item(4, nil)},
		}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := f.svc.ReassignEntities(ctx, mustStruct(t, map[string]any{"entities": []any{}}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}
