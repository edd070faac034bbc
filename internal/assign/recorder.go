// Package assign records territory assignments and drives automatic
// assignment from the territory matcher.
package assign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/solatis/groundskeeper/internal/types"
)

// Store persists assignment rows. Implemented by *db.Store.
type Store interface {
	InsertAssignment(ctx context.Context, a *types.Assignment) error
	ReplaceAssignment(ctx context.Context, a *types.Assignment) error
	CurrentAssignment(ctx context.Context, ref types.AssignableRef) (*types.Assignment, error)
	ListAssignments(ctx context.Context, ref types.AssignableRef) ([]types.Assignment, error)
}

// Recorder writes append-only assignment history.
//
// assigned_at is strictly increasing across all rows written by one Recorder,
// at microsecond resolution (the coarsest supported column precision), so
// two assignments made back to back always order the same way.
type Recorder struct {
	store Store
	now   func() time.Time

	mu   sync.Mutex
	last time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderClock overrides the time source, for tests.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder over store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an assignment of ref to territory. Automatic assignments
// must not carry an actor; manual ones must.
func (r *Recorder) Record(ctx context.Context, ref types.AssignableRef, territory *types.Territory, typ types.AssignmentType, assignedBy *types.UserID) (*types.Assignment, error) {
	a, err := r.build(ref, territory, typ, assignedBy)
	if err != nil {
		return nil, err
	}
	if err := r.store.InsertAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Replace is Record for callers that keep a single current row: prior rows
// for ref are deleted in the same transaction.
func (r *Recorder) Replace(ctx context.Context, ref types.AssignableRef, territory *types.Territory, typ types.AssignmentType, assignedBy *types.UserID) (*types.Assignment, error) {
	a, err := r.build(ref, territory, typ, assignedBy)
	if err != nil {
		return nil, err
	}
	if err := r.store.ReplaceAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Current returns the most recent assignment of ref.
func (r *Recorder) Current(ctx context.Context, ref types.AssignableRef) (*types.Assignment, error) {
	return r.store.CurrentAssignment(ctx, ref)
}

// History returns every assignment of ref, newest first.
func (r *Recorder) History(ctx context.Context, ref types.AssignableRef) ([]types.Assignment, error) {
	return r.store.ListAssignments(ctx, ref)
}

func (r *Recorder) build(ref types.AssignableRef, territory *types.Territory, typ types.AssignmentType, assignedBy *types.UserID) (*types.Assignment, error) {
	if ref == nil || ref.AssignableID() <= 0 {
		return nil, types.ErrInvalidAssignable
	}
	if territory == nil || territory.DeletedAt != nil {
		return nil, types.ErrTerritoryNotFound
	}
	if territory.Status != types.StatusActive {
		return nil, fmt.Errorf("%w: %s", types.ErrTerritoryInactive, territory.Code)
	}

	switch typ {
	case types.AssignmentAutomatic:
		if assignedBy != nil {
			return nil, types.ErrUnexpectedActor
		}
	case types.AssignmentManual:
		if assignedBy == nil || *assignedBy <= 0 {
			return nil, types.ErrActorRequired
		}
	default:
		return nil, fmt.Errorf("%w: unknown assignment type %q", types.ErrValidation, typ)
	}

	return &types.Assignment{
		ID:          types.NewAssignmentID(),
		TerritoryID: territory.ID,
		Assignable:  ref,
		AssignedBy:  assignedBy,
		Type:        typ,
		AssignedAt:  r.nextTimestamp(),
	}, nil
}

func (r *Recorder) nextTimestamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now().UTC().Truncate(time.Microsecond)
	if !t.After(r.last) {
		t = r.last.Add(time.Microsecond)
	}
	r.last = t
	return t
}
