package model

import "strings"

// Registration is one housing registration filing for a property.
// A parcel may carry several filings over time; each names the contacts
// responsible for the building during its period.
type Registration struct {
	// ID is the registration id assigned by the housing agency.
	ID string `json:"registration_id"`

	// BBL identifies the registered parcel.
	BBL BBL `json:"bbl"`

	// HouseNumber and StreetName are the situs address components.
	HouseNumber string `json:"house_number,omitempty"`
	StreetName  string `json:"street_name,omitempty"`

	// Zip is the situs ZIP code.
	Zip string `json:"zip,omitempty"`
}

// StreetAddress assembles the situs address for display, or empty if the
// filing carries no address fields.
func (r Registration) StreetAddress() string {
	return strings.TrimSpace(strings.TrimSpace(r.HouseNumber) + " " + strings.TrimSpace(r.StreetName))
}

// Party is the named party on a contact row: either an individual or an
// organization. The variant is decided once at ingestion, when the source
// row is parsed, rather than re-inspected at each use site.
type Party interface {
	// DisplayName returns the raw display form of the party's name.
	DisplayName() string

	// isParty marks the closed set of implementations.
	isParty()
}

// Person is an individual party with first and last name fields.
type Person struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

// DisplayName returns "FIRST LAST" with missing halves dropped.
func (p Person) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(p.First) + " " + strings.TrimSpace(p.Last))
}

func (Person) isParty() {}

// Organization is a corporate party with a single business name field.
type Organization struct {
	Name string `json:"name"`
}

// DisplayName returns the organization's business name.
func (o Organization) DisplayName() string {
	return strings.TrimSpace(o.Name)
}

func (Organization) isParty() {}

// Contact is one named row on a registration filing.
type Contact struct {
	// RegistrationID links the row back to its filing.
	RegistrationID string `json:"registration_id"`

	// Role is the contact's role description on the filing
	// (e.g. "HeadOfficer", "Agent", "SiteManager").
	Role string `json:"role"`

	// Party is the named person or organization. Nil when the source row
	// carried no usable name fields.
	Party Party `json:"-"`

	// Business mailing address components as reported on the filing.
	BusinessHouseNumber string `json:"business_house_number,omitempty"`
	BusinessStreetName  string `json:"business_street_name,omitempty"`
	BusinessApartment   string `json:"business_apartment,omitempty"`
	BusinessCity        string `json:"business_city,omitempty"`
	BusinessState       string `json:"business_state,omitempty"`
	BusinessZip         string `json:"business_zip,omitempty"`
}

// BusinessAddress assembles the contact's business mailing address for
// normalization and display, or empty if the row has no address.
func (c Contact) BusinessAddress() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{
		c.BusinessHouseNumber,
		c.BusinessStreetName,
		c.BusinessCity,
		c.BusinessState,
		c.BusinessZip,
	} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// Enrichment is the tax-assessment record attached to a property by the
// aggregator. A property with no enrichment match keeps zeroed fields.
type Enrichment struct {
	Address       string  `json:"address,omitempty"`
	OwnerName     string  `json:"owner_name,omitempty"`
	Units         int     `json:"units,omitempty"`
	YearBuilt     int     `json:"year_built,omitempty"`
	AssessedValue float64 `json:"assessed_value,omitempty"`
	Floors        float64 `json:"floors,omitempty"`
	BuildingArea  float64 `json:"building_area,omitempty"`
	Zoning        string  `json:"zoning,omitempty"`
}
