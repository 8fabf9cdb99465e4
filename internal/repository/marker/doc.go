// Package marker implements persistence for the rollback marker.
//
// The FileRepository stores the revision the working copy was at before a
// destructive reset, enabling manual revert by external tooling.
package marker
