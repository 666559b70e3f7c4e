package model

// NodeKind classifies a graph node.
type NodeKind string

// Node kinds. The kind participates in the node id, so two labels that
// collide across kinds (a person and a street sharing a spelling) still
// produce distinct nodes.
const (
	// KindPerson is an individual named on a registration contact.
	KindPerson NodeKind = "person"
	// KindEntity is a business entity (LLC, corp, trust, ...).
	KindEntity NodeKind = "entity"
	// KindAddress is a normalized business mailing address.
	KindAddress NodeKind = "address"
	// KindProperty is a tax parcel keyed by BBL.
	KindProperty NodeKind = "property"
)

// NodeID is the deterministic identifier of a graph node:
// kind + ":" + normalized key. Two mentions of the same real-world
// thing, however spelled in the source records, must map to the same id.
type NodeID string

// MakeNodeID derives the deterministic id for a kind and normalized key.
// For Property nodes the key is the BBL key ("boro-block-lot"); for all
// other kinds it is the normalized label.
func MakeNodeID(kind NodeKind, key string) NodeID {
	return NodeID(string(kind) + ":" + key)
}

// PropertyNodeID derives the id for a property node from its BBL.
func PropertyNodeID(bbl BBL) NodeID {
	return MakeNodeID(KindProperty, bbl.Key())
}

// PropertyAttrs holds the kind-specific payload of a Property node.
// Fields fill in opportunistically as registrations mention them and are
// refined later by enrichment; an empty field means "not yet seen", so
// merging never overwrites a known value with a blank one.
type PropertyAttrs struct {
	// BBL identifies the parcel.
	BBL BBL `json:"-"`

	// StreetAddress is the situs address as reported on a registration.
	StreetAddress string `json:"street_address,omitempty"`

	// Zip is the situs ZIP code.
	Zip string `json:"zip,omitempty"`
}

// Merge fills empty fields of a from other, preferring values already
// present. Insertion of an already-known node must be an attribute-merge,
// never a duplicate or an overwrite.
func (a *PropertyAttrs) Merge(other *PropertyAttrs) {
	if other == nil {
		return
	}
	if a.BBL.IsZero() {
		a.BBL = other.BBL
	}
	if a.StreetAddress == "" {
		a.StreetAddress = other.StreetAddress
	}
	if a.Zip == "" {
		a.Zip = other.Zip
	}
}

// Node is one vertex of the ownership graph.
type Node struct {
	// ID is the deterministic identifier; the node map is keyed by it.
	ID NodeID `json:"id"`

	// Kind classifies the node.
	Kind NodeKind `json:"kind"`

	// Label is the normalized display string.
	Label string `json:"label"`

	// Property carries the kind-specific payload for KindProperty nodes.
	// Nil for all other kinds.
	Property *PropertyAttrs `json:"property,omitempty"`
}
