// Package snapshot holds the archives for rendered search pages. The
// subpackages implement jobs.SnapshotStore against GCS, the local
// filesystem and process memory.
package snapshot

import (
	"path"
	"strings"
)

// Join prefixes name with prefix, ignoring stray slashes.
func Join(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	name = strings.TrimLeft(name, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
