// Package types provides domain models shared across Groundskeeper components.
//
// Territories, rules and assignments are plain structs so that the rules
// package can evaluate them without touching storage. Persistence lives in
// internal/core/db; wire conversion lives in internal/core/api.
package types

import (
	"encoding/json"
	"time"
)

// TerritoryID represents a UUIDv7 territory identifier.
// UUIDv7 time-ordering makes "id ascending" equal to creation order, which the
// matcher relies on for its tie-break.
type TerritoryID string

// RuleID represents a UUIDv7 territory rule identifier.
type RuleID string

// AssignmentID represents a UUIDv7 assignment identifier.
type AssignmentID string

// UserID references a CRM user (territory owner, manual assigner).
type UserID int64

// TerritoryType classifies what a territory partitions.
type TerritoryType string

const (
	TerritoryGeographic   TerritoryType = "geographic"
	TerritoryAccountBased TerritoryType = "account-based"
	TerritoryCustom       TerritoryType = "custom"
)

// Valid reports whether t is a known territory type.
func (t TerritoryType) Valid() bool {
	switch t {
	case TerritoryGeographic, TerritoryAccountBased, TerritoryCustom:
		return true
	}
	return false
}

// TerritoryStatus is the only state a territory carries.
type TerritoryStatus string

const (
	StatusActive   TerritoryStatus = "active"
	StatusInactive TerritoryStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s TerritoryStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// RuleType is a descriptive tag on a rule. It does not change evaluation.
type RuleType string

const (
	RuleGeographic  RuleType = "geographic"
	RuleIndustry    RuleType = "industry"
	RuleAccountSize RuleType = "account_size"
	RuleCustom      RuleType = "custom"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleGeographic, RuleIndustry, RuleAccountSize, RuleCustom:
		return true
	}
	return false
}

// AssignmentType records how an entity ended up in a territory.
type AssignmentType string

const (
	AssignmentManual    AssignmentType = "manual"
	AssignmentAutomatic AssignmentType = "automatic"
)

// Valid reports whether t is a known assignment type.
func (t AssignmentType) Valid() bool {
	return t == AssignmentManual || t == AssignmentAutomatic
}

// Territory is a node in the territory tree.
// Rules is populated by loaders that batch-fetch rules; it is nil otherwise.
type Territory struct {
	ID          TerritoryID     `json:"id"`
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Type        TerritoryType   `json:"type"`
	Status      TerritoryStatus `json:"status"`
	ParentID    *TerritoryID    `json:"parent_id,omitempty"`
	Boundaries  json.RawMessage `json:"boundaries,omitempty"` // opaque to the engine
	OwnerID     *UserID         `json:"owner_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
	Rules       []Rule          `json:"rules,omitempty"`
}

// IsActive reports whether the territory can take automatic assignments.
func (t *Territory) IsActive() bool {
	return t.Status == StatusActive && t.DeletedAt == nil
}

// Rule is a single predicate owned by a territory.
// Value holds the JSON-encoded comparison value exactly as stored; rule
// values are usually arrays even for scalar operators.
type Rule struct {
	ID          RuleID          `json:"id"`
	TerritoryID TerritoryID     `json:"territory_id"`
	RuleType    RuleType        `json:"rule_type"`
	FieldName   string          `json:"field_name"`
	Operator    string          `json:"operator"`
	Value       json.RawMessage `json:"value"`
	Priority    int             `json:"priority"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Assignment is one append-only audit row linking an entity to a territory.
type Assignment struct {
	ID          AssignmentID   `json:"id"`
	TerritoryID TerritoryID    `json:"territory_id"`
	Assignable  AssignableRef  `json:"-"`
	AssignedBy  *UserID        `json:"assigned_by,omitempty"` // nil for automatic
	Type        AssignmentType `json:"assignment_type"`
	AssignedAt  time.Time      `json:"assigned_at"`
}

// Resource limits enforced by the rule engine.
const (
	// MaxPathDepth bounds dotted field paths (organization.address.country...).
	// Deeper paths resolve to nil instead of walking further.
	MaxPathDepth = 16

	// MaxInOperatorValues bounds in/not_in lists accepted on write.
	MaxInOperatorValues = 256

	// MaxTerritoryDepth bounds the parent chain walked during cycle checks.
	MaxTerritoryDepth = 64
)
