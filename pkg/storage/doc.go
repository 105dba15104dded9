// Package storage provides the object storage layer for vessel photos.
//
// Photos and their metadata sidecars live under a per-vessel folder:
//
//	photos/IMO_<vesselID>/<photoID>.jpg
//	photos/IMO_<vesselID>/<photoID>.json
//
// The Store interface abstracts the backing object store; MinIOStore talks
// to any S3-compatible endpoint and MemoryStore backs tests.
package storage
