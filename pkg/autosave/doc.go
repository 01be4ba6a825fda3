// Package autosave saves process variable values and restores them on
// the next start.
//
// A Manager snapshots its variables every period and once more when its
// context ends. Restore applies saved values through Put, so restored
// values are validated by each variable's codec exactly like owner
// updates. Names that are no longer served, and values that no longer
// decode, are skipped with a warning.
//
// Two stores are provided: FileStore keeps one JSON document, BadgerStore
// keeps one key per variable in a badger database. NewStore builds either
// from a backend name and an option map.
package autosave
