package types

import (
	"fmt"
	"strconv"
)

// Assignable type tags as stored in territory_assignments.assignable_type.
const (
	AssignableLead         = "lead"
	AssignableOrganization = "organization"
	AssignablePerson       = "person"
)

// AssignableRef identifies the entity an assignment points at.
// The interface is sealed: only LeadRef, OrganizationRef and PersonRef
// implement it, so a type switch over the three is exhaustive.
type AssignableRef interface {
	// AssignableType returns the stored type tag.
	AssignableType() string
	// AssignableID returns the entity's primary key.
	AssignableID() int64

	assignable()
}

// LeadRef points at a lead.
type LeadRef struct{ ID int64 }

// OrganizationRef points at an organization.
type OrganizationRef struct{ ID int64 }

// PersonRef points at a person.
type PersonRef struct{ ID int64 }

func (r LeadRef) AssignableType() string         { return AssignableLead }
func (r LeadRef) AssignableID() int64            { return r.ID }
func (LeadRef) assignable()                      {}
func (r OrganizationRef) AssignableType() string { return AssignableOrganization }
func (r OrganizationRef) AssignableID() int64    { return r.ID }
func (OrganizationRef) assignable()              {}
func (r PersonRef) AssignableType() string       { return AssignablePerson }
func (r PersonRef) AssignableID() int64          { return r.ID }
func (PersonRef) assignable()                    {}

func (r LeadRef) String() string         { return refString(r) }
func (r OrganizationRef) String() string { return refString(r) }
func (r PersonRef) String() string       { return refString(r) }

func refString(r AssignableRef) string {
	return r.AssignableType() + ":" + strconv.FormatInt(r.AssignableID(), 10)
}

// ParseAssignableRef rebuilds a reference from its stored (type, id) pair.
// Returns ErrInvalidAssignable for unknown types or non-positive ids.
func ParseAssignableRef(assignableType string, id int64) (AssignableRef, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidAssignable, id)
	}
	switch assignableType {
	case AssignableLead:
		return LeadRef{ID: id}, nil
	case AssignableOrganization:
		return OrganizationRef{ID: id}, nil
	case AssignablePerson:
		return PersonRef{ID: id}, nil
	default:
		return nil, fmt.Errorf("%w: type %q", ErrInvalidAssignable, assignableType)
	}
}
