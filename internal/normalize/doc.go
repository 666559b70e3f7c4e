// Package normalize canonicalizes names and addresses into comparable
// keys and classifies names as individuals or business entities.
//
// Normalization is the deduplication backbone of the whole crawl: two
// spellings of the same name or address must normalize to the same key,
// because node identity, visited-set membership, and shared-address
// matching all compare normalized keys with exact string equality.
package normalize
