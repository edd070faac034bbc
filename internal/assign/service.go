package assign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/solatis/groundskeeper/internal/core/metrics"
	"github.com/solatis/groundskeeper/internal/entity"
	"github.com/solatis/groundskeeper/internal/rules"
	"github.com/solatis/groundskeeper/internal/types"
)

// CandidateSource provides the snapshot of territories eligible for
// automatic assignment. Implemented by *db.Store and *cache.CachedSource.
type CandidateSource interface {
	LoadCandidates(ctx context.Context) ([]types.Territory, error)
}

// TerritoryLookup fetches a single live territory. Implemented by *db.Store.
type TerritoryLookup interface {
	GetTerritory(ctx context.Context, id types.TerritoryID) (*types.Territory, error)
}

// Service matches entities to territories and records the outcome.
type Service struct {
	candidates  CandidateSource
	territories TerritoryLookup
	recorder    *Recorder
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewService wires a service.
func NewService(candidates CandidateSource, territories TerritoryLookup, recorder *Recorder, m *metrics.Metrics, log zerolog.Logger) *Service {
	if m == nil {
		m = metrics.Nop()
	}
	return &Service{
		candidates:  candidates,
		territories: territories,
		recorder:    recorder,
		metrics:     m,
		log:         log.With().Str("component", "assign").Logger(),
	}
}

// Recorder exposes the underlying recorder for history queries.
func (s *Service) Recorder() *Recorder {
	return s.recorder
}

// Matcher loads the current candidate snapshot and compiles it.
func (s *Service) Matcher(ctx context.Context) (*rules.Matcher, error) {
	snapshot, err := s.candidates.LoadCandidates(ctx)
	if err != nil {
		s.metrics.MatchesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return rules.NewMatcher(snapshot), nil
}

// Match finds the best territory for src without recording anything.
func (s *Service) Match(ctx context.Context, src rules.FieldSource) (rules.MatchResult, error) {
	m, err := s.Matcher(ctx)
	if err != nil {
		return rules.MatchResult{}, err
	}
	return s.match(m, src), nil
}

func (s *Service) match(m *rules.Matcher, src rules.FieldSource) rules.MatchResult {
	start := time.Now()
	result := m.Match(src)
	s.metrics.MatchDuration.Observe(time.Since(start).Seconds())

	if result.Matched {
		s.metrics.MatchesTotal.WithLabelValues(metrics.OutcomeMatched).Inc()
	} else {
		s.metrics.MatchesTotal.WithLabelValues(metrics.OutcomeNoMatch).Inc()
	}
	return result
}

// AutoAssign matches e and records an automatic assignment. It returns
// (nil, nil) when no territory matches.
func (s *Service) AutoAssign(ctx context.Context, e entity.Entity) (*types.Assignment, error) {
	m, err := s.Matcher(ctx)
	if err != nil {
		return nil, err
	}
	return s.autoAssign(ctx, m, e)
}

func (s *Service) autoAssign(ctx context.Context, m *rules.Matcher, e entity.Entity) (*types.Assignment, error) {
	ref := e.Ref()
	result := s.match(m, e)
	if !result.Matched {
		s.log.Debug().Stringer("assignable", refStringer{ref}).Msg("no territory matched")
		return nil, nil
	}

	a, err := s.recorder.Record(ctx, ref, result.Territory, types.AssignmentAutomatic, nil)
	if err != nil {
		return nil, fmt.Errorf("record assignment: %w", err)
	}
	s.metrics.AssignmentsTotal.WithLabelValues(string(types.AssignmentAutomatic)).Inc()
	s.log.Info().
		Stringer("assignable", refStringer{ref}).
		Str("territory_id", string(result.Territory.ID)).
		Str("territory_code", result.Territory.Code).
		Str("rule_id", string(result.RuleID)).
		Int("priority", result.Priority).
		Msg("territory auto-assigned")
	return a, nil
}

// ManualAssign records an assignment chosen by a user, bypassing rules.
func (s *Service) ManualAssign(ctx context.Context, ref types.AssignableRef, territoryID types.TerritoryID, actor types.UserID) (*types.Assignment, error) {
	territory, err := s.territories.GetTerritory(ctx, territoryID)
	if err != nil {
		return nil, err
	}
	a, err := s.recorder.Record(ctx, ref, territory, types.AssignmentManual, &actor)
	if err != nil {
		return nil, err
	}
	s.metrics.AssignmentsTotal.WithLabelValues(string(types.AssignmentManual)).Inc()
	s.log.Info().
		Stringer("assignable", refStringer{ref}).
		Str("territory_id", string(territory.ID)).
		Int64("assigned_by", int64(actor)).
		Msg("territory manually assigned")
	return a, nil
}

// ReassignResult summarises a bulk run.
type ReassignResult struct {
	Assigned  int
	Unmatched int
	Failed    int
}

// Reassign auto-assigns every entity against one snapshot. A failure for
// one entity is logged and collected; the rest still run.
func (s *Service) Reassign(ctx context.Context, entities []entity.Entity) (ReassignResult, error) {
	var res ReassignResult
	m, err := s.Matcher(ctx)
	if err != nil {
		return res, err
	}

	var errs []error
	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		a, err := s.autoAssign(ctx, m, e)
		switch {
		case err != nil:
			res.Failed++
			s.log.Warn().Err(err).Stringer("assignable", refStringer{e.Ref()}).Msg("reassignment failed")
			errs = append(errs, fmt.Errorf("%v: %w", refStringer{e.Ref()}, err))
		case a == nil:
			res.Unmatched++
		default:
			res.Assigned++
		}
	}
	return res, errors.Join(errs...)
}

// OnEntitySaved is the hook called after an entity is created or updated.
// Assignment failures are logged and swallowed so the save itself never fails.
func (s *Service) OnEntitySaved(ctx context.Context, e entity.Entity) {
	if _, err := s.AutoAssign(ctx, e); err != nil {
		s.log.Warn().Err(err).Stringer("assignable", refStringer{e.Ref()}).Msg("automatic territory assignment failed")
	}
}

type refStringer struct {
	ref types.AssignableRef
}

func (r refStringer) String() string {
	if r.ref == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s:%d", r.ref.AssignableType(), r.ref.AssignableID())
}
