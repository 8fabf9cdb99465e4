// Package scriptdir determines the real, symlink-resolved directory
// containing the running updater, independent of how it was invoked.
//
// Canonicalization strategies are tried in order and the first success wins;
// the raw invocation path is the unconditional last resort, so resolution
// degrades rather than fails.
package scriptdir
