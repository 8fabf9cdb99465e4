package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTestTree creates a small directory tree to compress.
func writeTestTree(t *testing.T, root string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "pyw3d"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "setup.py"), []byte("print('hi')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pyw3d", "core.py"), []byte("core\n"), 0o644))
}

// TestCreateZip_ExtractRoundtrip compresses a tree and unpacks it elsewhere.
func TestCreateZip_ExtractRoundtrip(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	src := filepath.Join(base, "Writing3D")
	writeTestTree(t, src)

	zipPath := filepath.Join(base, "last_good.zip")
	require.NoError(t, CreateZip(src, zipPath, "Writing3D"))

	dest := filepath.Join(base, "restored")
	require.NoError(t, Extract(zipPath, dest))

	contents, err := os.ReadFile(filepath.Join(dest, "Writing3D", "pyw3d", "core.py"))
	require.NoError(t, err)
	require.Equal(t, "core\n", string(contents))

	contents, err = os.ReadFile(filepath.Join(dest, "Writing3D", "setup.py"))
	require.NoError(t, err)
	require.Equal(t, "print('hi')\n", string(contents))
}

// TestExtract_TarGz unpacks a gzip-compressed tar archive.
func TestExtract_TarGz(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	var buf bytes.Buffer

	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	require.NoError(t, tarWriter.WriteHeader(&tar.Header{
		Name:     "blender-2.79/",
		Mode:     0o755,
		Typeflag: tar.TypeDir,
	}))

	body := []byte("binary")
	require.NoError(t, tarWriter.WriteHeader(&tar.Header{
		Name:     "blender-2.79/blender",
		Mode:     0o755,
		Size:     int64(len(body)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tarWriter.Write(body)
	require.NoError(t, err)
	require.NoError(t, tarWriter.Close())
	require.NoError(t, gzWriter.Close())

	src := filepath.Join(base, "engine.tar.gz")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	dest := filepath.Join(base, "out")
	require.NoError(t, Extract(src, dest))

	contents, err := os.ReadFile(filepath.Join(dest, "blender-2.79", "blender"))
	require.NoError(t, err)
	require.Equal(t, body, contents)
}

// TestExtract_RejectsEscapingEntry ensures zip-slip style names are refused.
func TestExtract_RejectsEscapingEntry(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	var buf bytes.Buffer

	zipWriter := zip.NewWriter(&buf)
	entry, err := zipWriter.Create("../evil.txt")
	require.NoError(t, err)
	_, err = entry.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, zipWriter.Close())

	src := filepath.Join(base, "bad.zip")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	dest := filepath.Join(base, "out")
	require.Error(t, Extract(src, dest))

	_, err = os.Stat(filepath.Join(base, "evil.txt"))
	require.True(t, os.IsNotExist(err))
}

// TestExtract_UnknownSuffix ensures unsupported formats are reported.
func TestExtract_UnknownSuffix(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	src := filepath.Join(base, "snapshot.rar")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	require.ErrorIs(t, Extract(src, filepath.Join(base, "out")), errUnsupportedFormat)
}
