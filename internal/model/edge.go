package model

// Edge source constants recording which adapter produced a relation.
const (
	// SourceRegistrations marks edges derived from registration contact rows.
	SourceRegistrations = "hpd_registrations"
	// SourceContactSearch marks edges derived from name-indexed contact search.
	SourceContactSearch = "hpd_contact_search"
	// SourceAddressSearch marks edges derived from shared-address discovery.
	SourceAddressSearch = "hpd_address_search"
)

// Edge role constants for relations the crawler itself names. Contact
// edges instead carry the role string straight off the filing
// ("Head Officer", "Agent", ...).
const (
	// RoleRegistration links a name to a property found via contact search.
	RoleRegistration = "registration"
	// RoleBusinessAddress links a name to its business mailing address.
	RoleBusinessAddress = "business_address"
	// RoleSharedBusinessAddress links a name to a mailing address it shares
	// with a previously discovered name.
	RoleSharedBusinessAddress = "shared_business_address"
)

// Edge is a directed, labeled relation between two nodes.
//
// Edges are deliberately a multigraph: two distinct filings linking the
// same two nodes both survive, because multiplicity itself is a signal
// the aggregator counts (a mail drop shared by many filings ranks high).
type Edge struct {
	// From is the source node id.
	From NodeID `json:"from"`

	// To is the destination node id.
	To NodeID `json:"to"`

	// Source records provenance: which adapter produced the relation.
	Source string `json:"source"`

	// Role records the relation kind, either a contact's role description
	// from the filing or one of the Role* constants.
	Role string `json:"role"`
}
