package types

import (
	"time"

	"github.com/google/uuid"
)

// NewTerritoryID generates a UUIDv7 territory identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewTerritoryID() TerritoryID {
	return TerritoryID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleID generates a UUIDv7 rule identifier.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewAssignmentID generates a UUIDv7 assignment identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
func NewAssignmentID() AssignmentID {
	return AssignmentID(uuid.Must(uuid.NewV7()).String())
}

// ParseTerritoryID validates and converts a string to TerritoryID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseTerritoryID(s string) (TerritoryID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return TerritoryID(s), nil
}

// ParseRuleID validates and converts a string to RuleID.
func ParseRuleID(s string) (RuleID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// AssignmentIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func AssignmentIDTime(id AssignmentID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}

// NewAPIKeyID generates a UUIDv7 API key row identifier.
func NewAPIKeyID() string {
	return uuid.Must(uuid.NewV7()).String()
}
