// Package entitytest generates realistic CRM entities for tests.
package entitytest

import (
	"github.com/brianvoe/gofakeit/v6"

	"github.com/solatis/groundskeeper/internal/entity"
)

// Industries used by generated organizations.
var Industries = []string{"Technology", "Finance", "Healthcare", "Retail", "Manufacturing"}

// Countries used by generated addresses.
var Countries = []string{"US", "CA", "MX", "DE", "FR", "GB", "JP", "AU"}

// Address returns an address in country.
func Address(f *gofakeit.Faker, country string) *entity.Address {
	return &entity.Address{
		Street:   f.Street(),
		City:     f.City(),
		State:    f.StateAbr(),
		Country:  country,
		Postcode: f.Zip(),
	}
}

// Organization returns an organization with every field populated.
func Organization(f *gofakeit.Faker, id int64) *entity.Organization {
	employees := f.IntRange(1, 5000)
	revenue := f.Float64Range(10_000, 50_000_000)
	return &entity.Organization{
		ID:                id,
		Name:              f.Company(),
		Industry:          f.RandomString(Industries),
		NumberOfEmployees: &employees,
		AnnualRevenue:     &revenue,
		Website:           f.URL(),
		Address:           Address(f, f.RandomString(Countries)),
	}
}

// Person returns a person employed by org (which may be nil).
func Person(f *gofakeit.Faker, id int64, org *entity.Organization) *entity.Person {
	return &entity.Person{
		ID:           id,
		Name:         f.Name(),
		Email:        f.Email(),
		JobTitle:     f.JobTitle(),
		Address:      Address(f, f.RandomString(Countries)),
		Organization: org,
	}
}

// Lead returns a lead for person, without a direct organization link.
func Lead(f *gofakeit.Faker, id int64, person *entity.Person) *entity.Lead {
	value := f.Float64Range(500, 250_000)
	closeDate := f.FutureDate()
	return &entity.Lead{
		ID:                id,
		Title:             f.Company() + " " + f.BuzzWord(),
		Status:            f.RandomString([]string{"new", "contacted", "qualified", "won", "lost"}),
		Source:            f.RandomString([]string{"web", "referral", "event", "outbound"}),
		Type:              f.RandomString([]string{"new_business", "existing_business"}),
		LeadValue:         &value,
		ExpectedCloseDate: &closeDate,
		Person:            person,
	}
}
