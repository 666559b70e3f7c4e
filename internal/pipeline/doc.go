// Package pipeline orchestrates the portfolio build as an ordered
// sequence of steps: crawl the registration graph, extract the seed's
// connected component, aggregate it into a portfolio, and persist the
// report. A BatchProcessor runs many builds concurrently.
package pipeline
