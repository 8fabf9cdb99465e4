// Package updater brings the Writing3D distribution to the latest remote
// state.
//
// It resolves the installation root from the updater's own (possibly
// symlinked) location, then picks one of two strategies: a git fetch and
// hard reset when a git client is available, or a zip-snapshot replacement
// of the whole distribution directory otherwise. The pre-update revision is
// recorded in a rollback marker before any destructive step.
//
// Concurrent invocations against the same distribution directory are unsafe
// and must be avoided by the caller; the package only warns when it notices
// another running instance.
package updater
