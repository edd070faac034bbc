package db

import (
	"database/sql"
	"encoding/json"

	"github.com/solatis/groundskeeper/internal/types"
)

type territoryRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Code        string         `db:"code"`
	Description string         `db:"description"`
	Type        string         `db:"type"`
	Status      string         `db:"status"`
	ParentID    sql.NullString `db:"parent_id"`
	Boundaries  sql.NullString `db:"boundaries"`
	OwnerID     sql.NullInt64  `db:"owner_id"`
	CreatedAt   Timestamp      `db:"created_at"`
	UpdatedAt   Timestamp      `db:"updated_at"`
	DeletedAt   *Timestamp     `db:"deleted_at"`
}

func (r territoryRow) toTerritory() types.Territory {
	t := types.Territory{
		ID:          types.TerritoryID(r.ID),
		Name:        r.Name,
		Code:        r.Code,
		Description: r.Description,
		Type:        types.TerritoryType(r.Type),
		Status:      types.TerritoryStatus(r.Status),
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
		DeletedAt:   timePtr(r.DeletedAt),
	}
	if r.ParentID.Valid {
		p := types.TerritoryID(r.ParentID.String)
		t.ParentID = &p
	}
	if r.Boundaries.Valid {
		t.Boundaries = json.RawMessage(r.Boundaries.String)
	}
	if r.OwnerID.Valid {
		o := types.UserID(r.OwnerID.Int64)
		t.OwnerID = &o
	}
	return t
}

type ruleRow struct {
	ID          string    `db:"id"`
	TerritoryID string    `db:"territory_id"`
	RuleType    string    `db:"rule_type"`
	FieldName   string    `db:"field_name"`
	Operator    string    `db:"operator"`
	Value       string    `db:"value"`
	Priority    int       `db:"priority"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   Timestamp `db:"created_at"`
}

func (r ruleRow) toRule() types.Rule {
	return types.Rule{
		ID:          types.RuleID(r.ID),
		TerritoryID: types.TerritoryID(r.TerritoryID),
		RuleType:    types.RuleType(r.RuleType),
		FieldName:   r.FieldName,
		Operator:    r.Operator,
		Value:       json.RawMessage(r.Value),
		Priority:    r.Priority,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.Time,
	}
}

type assignmentRow struct {
	ID             string        `db:"id"`
	TerritoryID    string        `db:"territory_id"`
	AssignableType string        `db:"assignable_type"`
	AssignableID   int64         `db:"assignable_id"`
	AssignedBy     sql.NullInt64 `db:"assigned_by"`
	AssignmentType string        `db:"assignment_type"`
	AssignedAt     Timestamp     `db:"assigned_at"`
}

func (r assignmentRow) toAssignment() (types.Assignment, error) {
	ref, err := types.ParseAssignableRef(r.AssignableType, r.AssignableID)
	if err != nil {
		return types.Assignment{}, err
	}
	a := types.Assignment{
		ID:          types.AssignmentID(r.ID),
		TerritoryID: types.TerritoryID(r.TerritoryID),
		Assignable:  ref,
		Type:        types.AssignmentType(r.AssignmentType),
		AssignedAt:  r.AssignedAt.Time,
	}
	if r.AssignedBy.Valid {
		u := types.UserID(r.AssignedBy.Int64)
		a.AssignedBy = &u
	}
	return a, nil
}
