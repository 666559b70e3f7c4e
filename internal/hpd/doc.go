// Package hpd adapts the NYC open-data Socrata API as the crawl's data
// source: HPD multiple-dwelling registrations, their contact rows, and
// PLUTO tax-assessment records for enrichment.
//
// Every lookup is a single attempt over plain HTTP with a per-request
// context; there is no retry on transient failure. Callers treat a
// failed lookup as "no data from this branch" and continue, so the
// client's job is only to report the failure honestly, never to mask or
// amplify it.
package hpd
