// Package aggregate distills an extracted graph component into the
// final portfolio: properties enriched from the assessment roll and
// ranked by value, people and entities ranked by connectivity, and the
// most-shared mailing addresses.
package aggregate
