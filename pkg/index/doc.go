// Package index maintains the cross-run vessel deduplication index.
//
// The index is a single JSON document in object storage listing every
// vessel that already has photos persisted. Flush merges with the stored
// document rather than overwriting it, so the set only ever grows during
// normal operation; Rebuild regenerates it from the storage layout when it
// is lost or suspect.
package index
