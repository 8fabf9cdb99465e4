package engine

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wphicks/w3d-updater/internal/config"
)

// TestParseVersion covers accepted and rejected version strings.
func TestParseVersion(t *testing.T) {
	t.Parallel()

	v, ok := parseVersion("2.79")
	require.True(t, ok)
	require.Equal(t, []int{2, 79}, v)

	v, ok = parseVersion("2.79.1")
	require.True(t, ok)
	require.Equal(t, []int{2, 79, 1}, v)

	_, ok = parseVersion("2.x")
	require.False(t, ok)

	_, ok = parseVersion("")
	require.False(t, ok)
}

// TestCompareVersions checks ordering with unequal segment counts.
func TestCompareVersions(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, compareVersions([]int{2, 79}, []int{2, 79, 0}))
	require.Equal(t, -1, compareVersions([]int{2, 78}, []int{2, 79}))
	require.Equal(t, 1, compareVersions([]int{2, 80}, []int{2, 79}))
}

// TestEngineVersionFromName parses build directory names.
func TestEngineVersionFromName(t *testing.T) {
	t.Parallel()

	v, ok := engineVersionFromName("blender-2.79-linux-glibc219-x86_64")
	require.True(t, ok)
	require.Equal(t, []int{2, 79}, v)

	v, ok = engineVersionFromName("blender-2.80")
	require.True(t, ok)
	require.Equal(t, []int{2, 80}, v)

	_, ok = engineVersionFromName("Writing3D")
	require.False(t, ok)
}

// TestInstalledEngineSatisfies scans an install root for builds.
func TestInstalledEngineSatisfies(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blender-2.79-linux-glibc219-x86_64"), 0o755))

	require.True(t, installedEngineSatisfies(root, []int{2, 79}))
	require.True(t, installedEngineSatisfies(root, []int{2, 78}))
	require.False(t, installedEngineSatisfies(root, []int{2, 80}))
	require.False(t, installedEngineSatisfies(filepath.Join(root, "missing"), []int{2, 79}))
}

// buildEngineTarGz produces a minimal engine build archive.
func buildEngineTarGz(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer

	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	require.NoError(t, tarWriter.WriteHeader(&tar.Header{
		Name:     "blender-2.79-linux-glibc219-x86_64/",
		Mode:     0o755,
		Typeflag: tar.TypeDir,
	}))

	body := []byte("engine binary")
	require.NoError(t, tarWriter.WriteHeader(&tar.Header{
		Name:     "blender-2.79-linux-glibc219-x86_64/blender",
		Mode:     0o755,
		Size:     int64(len(body)),
		Typeflag: tar.TypeReg,
	}))

	_, err := tarWriter.Write(body)
	require.NoError(t, err)
	require.NoError(t, tarWriter.Close())
	require.NoError(t, gzWriter.Close())

	return buf.Bytes()
}

// TestRun_DownloadsAndExtracts installs the engine into an empty root.
func TestRun_DownloadsAndExtracts(t *testing.T) {
	t.Parallel()

	build := buildEngineTarGz(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/blender-2.79.tar.gz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(build)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	installPath := t.TempDir()

	buildURL := server.URL + "/blender-2.79.tar.gz"
	cfg := config.Default()
	cfg.Timeout = time.Minute
	cfg.Engine.DownloadURLs = map[string]string{
		"linux":   buildURL,
		"mac":     buildURL,
		"windows": buildURL,
	}

	cfgPath := filepath.Join(installPath, "settings.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	require.NoError(t, Run(context.Background(), &Options{
		ConfigPath:  cfgPath,
		InstallPath: installPath,
	}))

	contents, err := os.ReadFile(filepath.Join(installPath,
		"blender-2.79-linux-glibc219-x86_64", "blender"))
	require.NoError(t, err)
	require.Equal(t, "engine binary", string(contents))
}

// TestRun_SkipsWhenSatisfied never contacts the mirror when a build is present.
func TestRun_SkipsWhenSatisfied(t *testing.T) {
	t.Parallel()

	installPath := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(installPath, "blender-2.80"), 0o755))

	var hits int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		http.Error(w, "should not be called", http.StatusInternalServerError)
	}))
	defer server.Close()

	buildURL := server.URL + "/blender-2.79.tar.gz"
	cfg := config.Default()
	cfg.Engine.DownloadURLs = map[string]string{
		"linux":   buildURL,
		"mac":     buildURL,
		"windows": buildURL,
	}

	cfgPath := filepath.Join(installPath, "settings.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	require.NoError(t, Run(context.Background(), &Options{
		ConfigPath:  cfgPath,
		InstallPath: installPath,
	}))
	require.Zero(t, hits)
}
