// Package archive creates zip backups and extracts release archives.
//
// Extraction routes by file suffix and supports the formats the distribution
// and its engine builds ship in: zip, tar, tar.gz, tar.bz2 and tar.xz.
// Entry paths are validated so an archive cannot write outside its
// destination directory.
package archive
