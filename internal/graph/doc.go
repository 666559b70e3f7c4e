// Package graph holds the in-memory node/edge set built during one
// crawl and the connected-component extraction over it.
//
// A Store is owned by a single crawl invocation and discarded with it;
// nothing in this package persists. Node insertion is idempotent and
// keyed by the deterministic node id, while edges form a multigraph —
// duplicate relations are kept on purpose because their multiplicity is
// a signal the aggregator ranks on.
package graph
