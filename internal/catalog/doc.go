// Package catalog persists what the archiver knows across runs.
//
// Two tables back it: content_hashes maps a (digest, size, method)
// fingerprint to the first path that produced it and answers "have we seen
// this content before"; file_records maps each absolute source path to its
// last processing outcome and makes re-runs over an unchanged tree a no-op.
// The database opens in WAL mode and applies embedded, versioned forward
// migrations on open.
package catalog
