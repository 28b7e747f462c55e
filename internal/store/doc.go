// Package store defines the snapshot store contract shared by every backend
// and the retrying load helper used by the sync pipeline. Implementations
// live in subpackages; this package must not import database drivers or
// concrete clients.
package store
