// Package api provides the gRPC territory service for Groundskeeper.
//
// Messages are google.protobuf.Struct so that entity payloads, which are
// schemaless field maps, pass through without generated types.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/groundskeeper/internal/assign"
	"github.com/solatis/groundskeeper/internal/core/auth"
	"github.com/solatis/groundskeeper/internal/core/config"
	"github.com/solatis/groundskeeper/internal/entity"
	"github.com/solatis/groundskeeper/internal/types"
)

// TerritoryService implements TerritoryServer.
// Thin orchestration layer delegating to the assign package.
type TerritoryService struct {
	assign   *assign.Service
	maxBatch int
	log      zerolog.Logger
}

// NewTerritoryService creates service instance with dependencies.
func NewTerritoryService(svc *assign.Service, cfg *config.ServerConfig, log zerolog.Logger) (*TerritoryService, error) {
	if svc == nil {
		return nil, fmt.Errorf("assign service cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	return &TerritoryService{
		assign:   svc,
		maxBatch: cfg.MaxBatchSize,
		log:      log.With().Str("component", "api").Logger(),
	}, nil
}

// MatchEntity evaluates {entity} against the current rules without recording.
func (s *TerritoryService) MatchEntity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	record, err := entityField(req)
	if err != nil {
		return nil, err
	}

	result, err := s.assign.Match(ctx, record)
	if err != nil {
		return nil, statusFromError(err)
	}
	if !result.Matched {
		return unmatched(), nil
	}
	return newStruct(map[string]any{
		"matched":        true,
		"territory_id":   string(result.Territory.ID),
		"territory_code": result.Territory.Code,
		"rule_id":        string(result.RuleID),
		"field_name":     result.FieldName,
		"priority":       result.Priority,
	})
}

// AssignEntity matches {assignable_type, assignable_id, entity} and records
// an automatic assignment.
func (s *TerritoryService) AssignEntity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ref, err := refField(req)
	if err != nil {
		return nil, err
	}
	record, err := entityField(req)
	if err != nil {
		return nil, err
	}

	a, err := s.assign.AutoAssign(ctx, entity.Bind(ref, record))
	if err != nil {
		return nil, statusFromError(err)
	}
	if a == nil {
		return unmatched(), nil
	}
	return assignmentResponse(a)
}

// ManualAssign records {assignable_type, assignable_id, territory_id} on
// behalf of the authenticated user.
func (s *TerritoryService) ManualAssign(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user in context")
	}
	ref, err := refField(req)
	if err != nil {
		return nil, err
	}
	territoryID, err := types.ParseTerritoryID(req.GetFields()["territory_id"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "territory_id must be a UUID")
	}

	a, err := s.assign.ManualAssign(ctx, ref, territoryID, actor)
	if err != nil {
		return nil, statusFromError(err)
	}
	return assignmentResponse(a)
}

// AssignmentHistory lists {assignable_type, assignable_id} assignments,
// newest first.
func (s *TerritoryService) AssignmentHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ref, err := refField(req)
	if err != nil {
		return nil, err
	}

	history, err := s.assign.Recorder().History(ctx, ref)
	if err != nil {
		return nil, statusFromError(err)
	}
	list := make([]any, 0, len(history))
	for i := range history {
		list = append(list, assignmentMap(&history[i]))
	}
	return newStruct(map[string]any{"assignments": list})
}

// ReassignEntities auto-assigns {entities: [...]} against one rule snapshot.
// Per-entity failures are counted, not returned as an RPC error.
func (s *TerritoryService) ReassignEntities(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	items := req.GetFields()["entities"].GetListValue().GetValues()
	if len(items) == 0 {
		return nil, status.Error(codes.InvalidArgument, "entities must be a non-empty list")
	}
	if len(items) > s.maxBatch {
		return nil, status.Errorf(codes.InvalidArgument, "batch of %d exceeds max_batch_size %d", len(items), s.maxBatch)
	}

	entities := make([]entity.Entity, 0, len(items))
	for i, item := range items {
		st := item.GetStructValue()
		if st == nil {
			return nil, status.Errorf(codes.InvalidArgument, "entities[%d] must be an object", i)
		}
		ref, err := refField(st)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "entities[%d]: %s", i, status.Convert(err).Message())
		}
		record, err := entityField(st)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "entities[%d]: %s", i, status.Convert(err).Message())
		}
		entities = append(entities, entity.Bind(ref, record))
	}

	res, err := s.assign.Reassign(ctx, entities)
	if err != nil && res.Assigned+res.Unmatched+res.Failed == 0 {
		return nil, statusFromError(err)
	}
	if err != nil {
		s.log.Warn().Err(err).Int("failed", res.Failed).Msg("reassignment finished with failures")
	}
	return newStruct(map[string]any{
		"assigned":  res.Assigned,
		"unmatched": res.Unmatched,
		"failed":    res.Failed,
	})
}

func entityField(req *structpb.Struct) (entity.Record, error) {
	st := req.GetFields()["entity"].GetStructValue()
	if st == nil {
		return nil, status.Error(codes.InvalidArgument, "entity must be an object")
	}
	return entity.Record(st.AsMap()), nil
}

func refField(req *structpb.Struct) (types.AssignableRef, error) {
	fields := req.GetFields()
	idValue, ok := fields["assignable_id"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "assignable_id is required")
	}
	n := idValue.GetNumberValue()
	if n != float64(int64(n)) {
		return nil, status.Error(codes.InvalidArgument, "assignable_id must be an integer")
	}
	ref, err := types.ParseAssignableRef(fields["assignable_type"].GetStringValue(), int64(n))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return ref, nil
}

func unmatched() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"matched": structpb.NewBoolValue(false),
	}}
}

func assignmentResponse(a *types.Assignment) (*structpb.Struct, error) {
	m := assignmentMap(a)
	m["matched"] = true
	return newStruct(m)
}

func assignmentMap(a *types.Assignment) map[string]any {
	m := map[string]any{
		"id":              string(a.ID),
		"territory_id":    string(a.TerritoryID),
		"assignable_type": a.Assignable.AssignableType(),
		"assignable_id":   a.Assignable.AssignableID(),
		"assignment_type": string(a.Type),
		"assigned_at":     a.AssignedAt.UTC().Format(time.RFC3339Nano),
		"assigned_by":     nil,
	}
	if a.AssignedBy != nil {
		m["assigned_by"] = int64(*a.AssignedBy)
	}
	return m
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}
