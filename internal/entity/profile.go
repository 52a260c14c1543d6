package entity

import (
	"strings"
	"time"
)

const (
	// RoleCustomer is assigned to every profile created by this service.
	RoleCustomer = "customer"

	// DefaultProvince is backfilled into profiles that were stored without
	// a province. The dealership serves a single region.
	DefaultProvince = "Western Cape"
)

// UserProfile is the per-user document kept in the profile store, keyed by
// identity id. Address is derived from the structured fields and is rebuilt
// whenever they change.
type UserProfile struct {
	UID        string
	Name       string
	Email      string
	Phone      string
	Street     string
	Suburb     string
	City       string
	Province   string
	PostalCode string
	Address    string
	Role       string
	CreatedAt  time.Time
}

// IsComplete reports whether the profile carries everything a booking needs:
// name, phone and the full structured address, all non-empty after trimming.
func (p *UserProfile) IsComplete() bool {
	if p == nil {
		return false
	}
	required := []string{p.Name, p.Phone, p.Street, p.Suburb, p.City, p.Province, p.PostalCode}
	for _, v := range required {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// RecomputeAddress rebuilds the derived address from the structured fields,
// keeping any previously stored free-text address as the fallback.
func (p *UserProfile) RecomputeAddress() {
	p.Address = ComposeAddress(AddressParts{
		Street:          p.Street,
		Suburb:          p.Suburb,
		City:            p.City,
		Province:        p.Province,
		PostalCode:      p.PostalCode,
		FallbackAddress: p.Address,
	})
}
