// Package store holds the pieces shared by every persistence gateway:
// batch defaults, filter defaults and the stand-in gateway used when no
// backend could be configured. Concrete backends live in subpackages; this
// package must not import database drivers.
package store
