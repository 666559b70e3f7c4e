// Package model defines the core data structures shared across the
// ownership-graph builder: the BBL property identifier, graph nodes and
// edges, HPD registration and contact records, and the portfolio result
// returned to callers.
//
// All types in this package are plain serializable values with no behavior
// beyond validation and formatting. Crawl state (visited sets, frontier)
// lives in the crawler package; this package only models what a crawl
// produces.
package model
