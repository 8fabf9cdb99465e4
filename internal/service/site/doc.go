// Package site registers the distribution with an embedded Python
// interpreter by writing a .pth file into its site-packages directories.
package site
