package types

import "errors"

// Sentinel errors for Groundskeeper operations.
var (
	// ErrTerritoryNotFound indicates no live territory has the given id or code.
	ErrTerritoryNotFound = errors.New("territory not found")

	// ErrParentNotFound indicates parent_id references a missing or deleted territory.
	ErrParentNotFound = errors.New("parent territory not found")

	// ErrTerritoryCycle indicates a re-parent would make a territory its own ancestor.
	ErrTerritoryCycle = errors.New("territory parent would create a cycle")

	// ErrDuplicateCode indicates another territory already uses the code.
	ErrDuplicateCode = errors.New("territory code already in use")

	// ErrTerritoryInactive indicates a manual assignment targeted an inactive territory.
	ErrTerritoryInactive = errors.New("territory is not active")

	// ErrInvalidOperator indicates an operator outside the supported set.
	ErrInvalidOperator = errors.New("invalid rule operator")

	// ErrInvalidRuleValue indicates a rule value that does not fit its operator.
	ErrInvalidRuleValue = errors.New("invalid rule value for operator")

	// ErrTooManyInValues indicates an in/not_in list exceeds MaxInOperatorValues.
	ErrTooManyInValues = errors.New("in operator has too many values")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrActorRequired indicates a manual assignment without assigned_by.
	ErrActorRequired = errors.New("manual assignment requires an actor")

	// ErrUnexpectedActor indicates an automatic assignment carrying assigned_by.
	ErrUnexpectedActor = errors.New("automatic assignment must not carry an actor")

	// ErrInvalidAssignable indicates an unknown assignable type or bad id.
	ErrInvalidAssignable = errors.New("invalid assignable reference")

	// ErrValidation indicates admin input failed field validation.
	ErrValidation = errors.New("validation failed")

	// ErrAssignmentNotFound indicates an entity has no recorded assignment.
	ErrAssignmentNotFound = errors.New("assignment not found")
)
