package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xi2/xz"
)

const defaultDirMode os.FileMode = 0o755

var (
	// errUnsupportedFormat is returned for archive suffixes we do not handle.
	errUnsupportedFormat = errors.New("unsupported archive format")
	// errUnsafePath is returned when an entry would escape the destination.
	errUnsafePath = errors.New("archive entry escapes destination")
)

// CreateZip compresses srcDir recursively into destZip. Entries are stored
// under prefix so the archive unpacks to a single top-level directory.
func CreateZip(srcDir, destZip, prefix string) error {
	out, err := os.Create(filepath.Clean(destZip))
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	writer := zip.NewWriter(out)

	walkErr := filepath.WalkDir(srcDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		name := filepath.ToSlash(filepath.Join(prefix, rel))

		if entry.IsDir() {
			_, err = writer.CreateHeader(&zip.FileHeader{Name: name + "/"})
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		// Leaf symlinks and other irregular files are skipped: the backup is
		// a best-effort snapshot of the tree contents.
		if !info.Mode().IsRegular() {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}

		header.Name = name
		header.Method = zip.Deflate

		entryWriter, err := writer.CreateHeader(header)
		if err != nil {
			return err
		}

		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			return err
		}

		_, err = io.Copy(entryWriter, file)
		closeErr := file.Close()

		if err != nil {
			return err
		}

		return closeErr
	})

	if walkErr != nil {
		_ = writer.Close()
		_ = out.Close()

		return fmt.Errorf("compress %s: %w", srcDir, walkErr)
	}

	if err = writer.Close(); err != nil {
		_ = out.Close()

		return fmt.Errorf("finalize archive: %w", err)
	}

	return out.Close()
}

// Extract unpacks the archive at src into destDir, routing by file suffix.
// Supported formats: .zip, .tar, .tar.gz/.tgz, .tar.bz2, .tar.xz.
func Extract(src, destDir string) error {
	switch {
	case strings.HasSuffix(src, ".zip"):
		return extractZip(src, destDir)
	case strings.HasSuffix(src, ".tar"),
		strings.HasSuffix(src, ".tar.gz"), strings.HasSuffix(src, ".tgz"),
		strings.HasSuffix(src, ".tar.bz2"),
		strings.HasSuffix(src, ".tar.xz"):
		return extractTarArchive(src, destDir)
	default:
		return fmt.Errorf("%s: %w", src, errUnsupportedFormat)
	}
}

// extractZip unpacks a zip archive into destDir.
func extractZip(src, destDir string) error {
	reader, err := zip.OpenReader(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, entry := range reader.File {
		target, err := securePath(destDir, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(target, defaultDirMode); err != nil {
				return err
			}

			continue
		}

		if err = os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
			return err
		}

		if err = writeZipEntry(entry, target); err != nil {
			return err
		}
	}

	return nil
}

// writeZipEntry copies a single zip entry to the target path, keeping its mode.
func writeZipEntry(entry *zip.File, target string) error {
	source, err := entry.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = source.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(target), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm(entry.Mode().Perm()))
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, source); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

// extractTarArchive unpacks tar and compressed tar variants into destDir.
func extractTarArchive(src, destDir string) error {
	file, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	var reader io.Reader = file

	switch {
	case strings.HasSuffix(src, ".tar.gz"), strings.HasSuffix(src, ".tgz"):
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}

		defer func() {
			_ = gzReader.Close()
		}()

		reader = gzReader
	case strings.HasSuffix(src, ".tar.bz2"):
		reader = bzip2.NewReader(file)
	case strings.HasSuffix(src, ".tar.xz"):
		xzReader, err := xz.NewReader(file, 0)
		if err != nil {
			return fmt.Errorf("open xz stream: %w", err)
		}

		reader = xzReader
	}

	return extractTar(tar.NewReader(reader), destDir)
}

// extractTar writes tar entries under destDir.
func extractTar(reader *tar.Reader, destDir string) error {
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := securePath(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, os.FileMode(header.Mode).Perm()|0o700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err = os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
				return err
			}

			if err = writeTarEntry(reader, header, target); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err = os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
				return err
			}

			if err = os.Symlink(header.Linkname, target); err != nil {
				return err
			}
		default:
			// Hard links, devices and the like do not occur in release
			// archives; ignore them rather than fail the whole update.
		}
	}
}

// writeTarEntry copies a single regular-file entry to the target path.
func writeTarEntry(reader io.Reader, header *tar.Header, target string) error {
	out, err := os.OpenFile(filepath.Clean(target), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm(os.FileMode(header.Mode).Perm()))
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, reader); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

// filePerm substitutes a sane default for entries stored without a mode.
func filePerm(perm os.FileMode) os.FileMode {
	if perm == 0 {
		return 0o644
	}

	return perm
}

// securePath joins an archive entry name to the destination, rejecting
// entries that would escape it.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if target != filepath.Clean(destDir) && !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s: %w", name, errUnsafePath)
	}

	return target, nil
}
