package storage

import (
	"fmt"
	"strings"
)

// VesselFolderPrefix is prepended to vessel identifiers to form the
// per-vessel folder name under the upload prefix.
const VesselFolderPrefix = "IMO_"

// PhotoKey builds the storage key for a photo image.
// Layout: <prefix>/IMO_<vesselID>/<photoID>.jpg
func PhotoKey(prefix, vesselID, photoID string) string {
	return fmt.Sprintf("%s/%s%s/%s.jpg", strings.TrimSuffix(prefix, "/"), VesselFolderPrefix, vesselID, photoID)
}

// MetadataKey builds the storage key for a photo's metadata sidecar.
// Layout: <prefix>/IMO_<vesselID>/<photoID>.json
func MetadataKey(prefix, vesselID, photoID string) string {
	return fmt.Sprintf("%s/%s%s/%s.json", strings.TrimSuffix(prefix, "/"), VesselFolderPrefix, vesselID, photoID)
}

// VesselFolder builds the per-vessel folder key without a trailing separator.
func VesselFolder(prefix, vesselID string) string {
	return fmt.Sprintf("%s/%s%s", strings.TrimSuffix(prefix, "/"), VesselFolderPrefix, vesselID)
}

// VesselIDFromFolder extracts the vessel identifier from a folder name,
// accepting both the IMO_-prefixed form and a bare identifier. The second
// return value reports whether the folder named a vessel at all.
func VesselIDFromFolder(folder string) (string, bool) {
	name := folder
	if i := strings.LastIndex(strings.TrimSuffix(name, "/"), "/"); i >= 0 {
		name = strings.TrimSuffix(name, "/")[i+1:]
	} else {
		name = strings.TrimSuffix(name, "/")
	}
	name = strings.TrimPrefix(name, VesselFolderPrefix)
	if name == "" {
		return "", false
	}
	return name, true
}
