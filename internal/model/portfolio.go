package model

import "time"

// PropertySummary is one enriched property in the final portfolio.
type PropertySummary struct {
	// BBL is the canonical "boro-block-lot" key of the parcel.
	BBL string `json:"bbl"`

	// Borough is the human-readable borough name.
	Borough string `json:"borough"`

	// Address is the best-known situs address (enrichment preferred,
	// registration fallback).
	Address string `json:"address,omitempty"`

	// Zip is the situs ZIP code.
	Zip string `json:"zip,omitempty"`

	// OwnerName is the owner of record from the assessment roll.
	OwnerName string `json:"owner_name,omitempty"`

	// Units is the residential unit count.
	Units int `json:"units,omitempty"`

	// YearBuilt is the construction year.
	YearBuilt int `json:"year_built,omitempty"`

	// AssessedValue is the total assessed value in dollars.
	AssessedValue float64 `json:"assessed_value,omitempty"`

	// Floors is the floor count.
	Floors float64 `json:"floors,omitempty"`

	// BuildingArea is the gross building area in square feet.
	BuildingArea float64 `json:"building_area,omitempty"`

	// Zoning is the zoning district designation.
	Zoning string `json:"zoning,omitempty"`

	// ConnectedVia lists up to three labels of nodes directly linked to
	// this property, explaining why it appears in the portfolio.
	ConnectedVia []string `json:"connected_via,omitempty"`
}

// OwnerSummary is one person or entity in the final portfolio, ranked by
// how many properties it is linked to.
type OwnerSummary struct {
	// Name is the normalized display name.
	Name string `json:"name"`

	// PropertyCount is the number of edges linking this name to a
	// property node. Duplicate filings count separately: a name filed
	// twice against one building counts twice, which is the signal the
	// ranking wants.
	PropertyCount int `json:"property_count"`

	// Roles is the deduplicated set of edge roles this name appears under.
	Roles []string `json:"roles,omitempty"`

	// Addresses is the deduplicated set of business address labels linked
	// to this name.
	Addresses []string `json:"addresses,omitempty"`
}

// AddressSummary is one shared mailing address in the final portfolio.
// A high link count signals many ostensibly distinct owners sharing one
// mail drop.
type AddressSummary struct {
	// Address is the normalized address label.
	Address string `json:"address"`

	// LinkCount is the number of edges incident to the address node.
	LinkCount int `json:"link_count"`
}

// GraphStats summarizes the crawl that produced a portfolio.
type GraphStats struct {
	// NodeCount is the number of nodes in the extracted component.
	NodeCount int `json:"node_count"`

	// EdgeCount is the number of edges in the extracted component.
	EdgeCount int `json:"edge_count"`

	// RoundsRun is the number of crawl rounds actually executed.
	RoundsRun int `json:"rounds_run"`
}

// PortfolioResult is the distilled output of one ownership-graph build:
// the properties, people, entities, and shared addresses connected to the
// seed parcel, each list ranked as described on its field.
type PortfolioResult struct {
	// Properties is sorted descending by assessed value.
	Properties []PropertySummary `json:"properties"`

	// People is sorted descending by property count.
	People []OwnerSummary `json:"people"`

	// Entities is sorted descending by property count.
	Entities []OwnerSummary `json:"entities"`

	// CommonAddresses is the top shared addresses by incident edge count.
	CommonAddresses []AddressSummary `json:"common_addresses"`

	// Graph summarizes the crawl.
	Graph GraphStats `json:"graph"`
}

// PortfolioReport wraps a PortfolioResult with build metadata. This is
// the unit persisted to the scan-history database and consumed by the
// report writers.
type PortfolioReport struct {
	// Seed is the canonical BBL key the build started from.
	Seed string `json:"seed"`

	// DateBuilt is when the build ran.
	DateBuilt time.Time `json:"date_built"`

	// MaxDepth is the round budget the build ran with.
	MaxDepth int `json:"max_depth"`

	// Result is the distilled portfolio. Always non-nil on a completed
	// build, even when no signal was found (empty lists).
	Result *PortfolioResult `json:"result,omitempty"`

	// TimedOut is true if the crawl deadline expired; Result then holds
	// whatever was assembled before the deadline.
	TimedOut bool `json:"timed_out,omitempty"`

	// ErrorMessage holds a build-level failure description, if any.
	ErrorMessage string `json:"error_message,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the build-level failure; not serialized.
	Error error `json:"-"`
}

// NewPortfolioReport creates a report shell for a build of the given seed.
func NewPortfolioReport(seed BBL, maxDepth int) *PortfolioReport {
	return &PortfolioReport{
		Seed:      seed.Key(),
		DateBuilt: time.Now().UTC(),
		MaxDepth:  maxDepth,
	}
}

// PropertyCount returns the number of properties in the result, or zero
// when no result was produced.
func (r *PortfolioReport) PropertyCount() int {
	if r.Result == nil {
		return 0
	}
	return len(r.Result.Properties)
}

// OwnerCount returns the combined people and entity count.
func (r *PortfolioReport) OwnerCount() int {
	if r.Result == nil {
		return 0
	}
	return len(r.Result.People) + len(r.Result.Entities)
}
