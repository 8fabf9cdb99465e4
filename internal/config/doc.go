// Package config defines update source settings used by the updater commands
// and provides helpers to load, validate and save them in YAML format.
//
// The settings file is optional: when absent, the Writing3D distribution
// defaults are used, preserving the argument-less invocation of the tool.
package config
