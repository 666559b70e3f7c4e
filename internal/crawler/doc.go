// Package crawler implements the breadth-first ownership-graph crawl.
//
// Starting from a seed parcel, the crawler expands a typed frontier of
// property tasks and name tasks against the registration data source
// for up to a fixed number of rounds, writing nodes and edges into a
// graph store. Per-round fan-out is capped, lookups within a round run
// concurrently and join at a barrier, and visited sets guarantee no
// source record is processed twice within one crawl.
package crawler
