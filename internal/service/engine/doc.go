// Package engine installs the engine (Blender) build the distribution
// requires: it picks the platform-specific archive, downloads it and
// extracts it into the installation root, skipping hosts that already carry
// a satisfying build.
package engine
