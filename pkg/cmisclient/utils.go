package cmisclient

import (
	"crypto/rand"
	"strings"
	"time"
)

const objectIDPrefix = "workspace://SpacesStore/"

const nameSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomSuffix returns n characters drawn from A-Z0-9, used to keep sibling
// names unique inside a folder.
func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform source is broken; fall
		// back to a fixed marker rather than propagate an error through
		// every naming call site.
		return strings.Repeat("X", n)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = nameSuffixAlphabet[int(b)%len(nameSuffixAlphabet)]
	}
	return string(out)
}

// uniqueName appends a random 6-character suffix to a base name.
func uniqueName(base string) string {
	return base + "-" + randomSuffix(6)
}

// shortUUID derives the bare uuid from an objectId by stripping the
// repository prefix and any version label.
func shortUUID(objectID string) string {
	s := strings.TrimPrefix(objectID, objectIDPrefix)
	if i := strings.Index(s, ";"); i >= 0 {
		s = s[:i]
	}
	return s
}

// versionlessID strips the version label from an objectId, keeping the
// repository prefix.
func versionlessID(objectID string) string {
	if i := strings.Index(objectID, ";"); i >= 0 {
		return objectID[:i]
	}
	return objectID
}

// datePath returns the yyyy/m/d segments of the date-partitioned folder
// structure.
func datePath(t time.Time) []string {
	return []string{
		t.Format("2006"),
		t.Format("1"),
		t.Format("2"),
	}
}
