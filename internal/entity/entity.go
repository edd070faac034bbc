// Package entity adapts CRM records to rule subjects.
//
// Each type exposes its attributes through a static field map so rules can
// address them by name (industry, number_of_employees) or through a relation
// (organization.address.country). Zero values read as absent: an empty
// string or a nil pointer resolves to nil, which is what is_null tests for.
package entity

import (
	"time"

	"github.com/solatis/groundskeeper/internal/rules"
	"github.com/solatis/groundskeeper/internal/types"
)

// Entity is an assignable rule subject.
type Entity interface {
	rules.FieldSource
	Ref() types.AssignableRef
}

// Address is the postal address shared by all entity kinds.
type Address struct {
	Street   string `json:"street,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

// Field implements rules.FieldSource.
func (a *Address) Field(name string) any {
	if a == nil {
		return nil
	}
	switch name {
	case "street":
		return str(a.Street)
	case "city":
		return str(a.City)
	case "state":
		return str(a.State)
	case "country":
		return str(a.Country)
	case "postcode":
		return str(a.Postcode)
	}
	return nil
}

// Organization is a company account.
type Organization struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Industry          string   `json:"industry,omitempty"`
	NumberOfEmployees *int     `json:"number_of_employees,omitempty"`
	AnnualRevenue     *float64 `json:"annual_revenue,omitempty"`
	Website           string   `json:"website,omitempty"`
	Address           *Address `json:"address,omitempty"`
}

// Ref implements Entity.
func (o *Organization) Ref() types.AssignableRef {
	return types.OrganizationRef{ID: o.ID}
}

// Field implements rules.FieldSource.
func (o *Organization) Field(name string) any {
	if o == nil {
		return nil
	}
	switch name {
	case "id":
		return o.ID
	case "name":
		return str(o.Name)
	case "industry":
		return str(o.Industry)
	case "number_of_employees":
		return intPtr(o.NumberOfEmployees)
	case "annual_revenue":
		return floatPtr(o.AnnualRevenue)
	case "website":
		return str(o.Website)
	case "address":
		return address(o.Address)
	}
	return addressField(o.Address, name)
}

// Person is a contact, optionally employed by an organization.
type Person struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email,omitempty"`
	JobTitle     string        `json:"job_title,omitempty"`
	Address      *Address      `json:"address,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
}

// Ref implements Entity.
func (p *Person) Ref() types.AssignableRef {
	return types.PersonRef{ID: p.ID}
}

// Field implements rules.FieldSource.
func (p *Person) Field(name string) any {
	if p == nil {
		return nil
	}
	switch name {
	case "id":
		return p.ID
	case "name":
		return str(p.Name)
	case "email":
		return str(p.Email)
	case "job_title":
		return str(p.JobTitle)
	case "address":
		return address(p.Address)
	case "organization":
		return organization(p.Organization)
	}
	return addressField(p.Address, name)
}

// Lead is a sales opportunity tied to a person and/or organization.
type Lead struct {
	ID                int64         `json:"id"`
	Title             string        `json:"title"`
	Status            string        `json:"status,omitempty"`
	Source            string        `json:"source,omitempty"`
	Type              string        `json:"type,omitempty"`
	LeadValue         *float64      `json:"lead_value,omitempty"`
	ExpectedCloseDate *time.Time    `json:"expected_close_date,omitempty"`
	Address           *Address      `json:"address,omitempty"`
	Person            *Person       `json:"person,omitempty"`
	Organization      *Organization `json:"organization,omitempty"`
}

// Ref implements Entity.
func (l *Lead) Ref() types.AssignableRef {
	return types.LeadRef{ID: l.ID}
}

// Field implements rules.FieldSource.
// organization falls back to the person's organization when the lead has none.
func (l *Lead) Field(name string) any {
	if l == nil {
		return nil
	}
	switch name {
	case "id":
		return l.ID
	case "title":
		return str(l.Title)
	case "status":
		return str(l.Status)
	case "source":
		return str(l.Source)
	case "type":
		return str(l.Type)
	case "lead_value":
		return floatPtr(l.LeadValue)
	case "expected_close_date":
		if l.ExpectedCloseDate == nil {
			return nil
		}
		return *l.ExpectedCloseDate
	case "address":
		return address(l.Address)
	case "person":
		if l.Person == nil {
			return nil
		}
		return l.Person
	case "organization":
		if l.Organization != nil {
			return l.Organization
		}
		if l.Person != nil {
			return organization(l.Person.Organization)
		}
		return nil
	}
	return addressField(l.Address, name)
}

// Relations must come back as an untyped nil when absent; a typed nil
// pointer inside an interface would look present to the resolver.

func address(a *Address) any {
	if a == nil {
		return nil
	}
	return a
}

func organization(o *Organization) any {
	if o == nil {
		return nil
	}
	return o
}

func addressField(a *Address, name string) any {
	if a == nil {
		return nil
	}
	return a.Field(name)
}

func str(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func intPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
