// Package main provides the entry point for the ownergraph CLI.
//
// ownergraph builds ownership portfolios for NYC residential buildings.
// Starting from a single tax parcel (BBL), it crawls housing registration
// and contact records outward, links buildings through shared officers,
// agents, and mailing addresses, and reports the connected portfolio.
//
// Usage:
//
//	ownergraph build <bbl>
//	ownergraph build --list <file>
//
// See --help for all available options.
package main

// main is the entry point for ownergraph.
func main() {
	Execute()
}
