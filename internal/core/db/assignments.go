package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/solatis/groundskeeper/internal/types"
)

// InsertAssignment appends an assignment row.
func (s *Store) InsertAssignment(ctx context.Context, a *types.Assignment) error {
	return insertAssignment(ctx, s.q, a)
}

// ReplaceAssignment removes every prior row for the assignable and inserts a
// in the same transaction.
func (s *Store) ReplaceAssignment(ctx context.Context, a *types.Assignment) error {
	return s.q.InTx(ctx, func(tx *Queries) error {
		ref := a.Assignable
		if ref == nil {
			return types.ErrInvalidAssignable
		}
		if _, err := tx.Exec(ctx, "delete-assignments-for-assignable", ref.AssignableType(), ref.AssignableID()); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		return insertAssignment(ctx, tx, a)
	})
}

// DeleteAssignments removes every row for ref and reports how many went.
func (s *Store) DeleteAssignments(ctx context.Context, ref types.AssignableRef) (int64, error) {
	res, err := s.q.Exec(ctx, "delete-assignments-for-assignable", ref.AssignableType(), ref.AssignableID())
	if err != nil {
		return 0, fmt.Errorf("delete assignments: %w", err)
	}
	return res.RowsAffected()
}

// ListAssignments returns the assignment history of ref, newest first.
func (s *Store) ListAssignments(ctx context.Context, ref types.AssignableRef) ([]types.Assignment, error) {
	var rows []assignmentRow
	if err := s.q.Select(ctx, "list-assignments-for-assignable", &rows, ref.AssignableType(), ref.AssignableID()); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return toAssignments(rows)
}

// CurrentAssignment returns the newest assignment of ref, or
// ErrAssignmentNotFound.
func (s *Store) CurrentAssignment(ctx context.Context, ref types.AssignableRef) (*types.Assignment, error) {
	var row assignmentRow
	err := s.q.Get(ctx, "get-current-assignment", &row, ref.AssignableType(), ref.AssignableID())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", types.ErrAssignmentNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	a, err := row.toAssignment()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListTerritoryAssignments returns every assignment into a territory, newest first.
func (s *Store) ListTerritoryAssignments(ctx context.Context, id types.TerritoryID) ([]types.Assignment, error) {
	var rows []assignmentRow
	if err := s.q.Select(ctx, "list-assignments-for-territory", &rows, id); err != nil {
		return nil, fmt.Errorf("list territory assignments: %w", err)
	}
	return toAssignments(rows)
}

func insertAssignment(ctx context.Context, q *Queries, a *types.Assignment) error {
	if a.Assignable == nil {
		return types.ErrInvalidAssignable
	}
	_, err := q.Exec(ctx, "insert-assignment",
		a.ID, a.TerritoryID, a.Assignable.AssignableType(), a.Assignable.AssignableID(),
		a.AssignedBy, a.Type, NewTimestamp(a.AssignedAt))
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func toAssignments(rows []assignmentRow) ([]types.Assignment, error) {
	out := make([]types.Assignment, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAssignment()
		if err != nil {
			return nil, fmt.Errorf("assignment %s: %w", r.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}
