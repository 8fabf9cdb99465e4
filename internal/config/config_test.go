package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLoad_MissingFileYieldsDefaults ensures absence of a settings file is not an error.
func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultDistributionName, cfg.DistributionName)
	require.Equal(t, DefaultBranch, cfg.Branch)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Contains(t, cfg.Engine.DownloadURLs, "linux")
}

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing branch.
	cfg := &Config{DistributionName: "Writing3D"}
	require.Error(t, Validate(cfg))

	// Distribution name with a path separator.
	cfg = &Config{Branch: "master", DistributionName: "a/b"}
	require.Error(t, Validate(cfg))

	// Bad snapshot URL.
	cfg = &Config{
		Branch:           "master",
		DistributionName: "Writing3D",
		SnapshotURL:      "not a url",
	}
	require.Error(t, Validate(cfg))

	// Okay; optional fields default.
	cfg = &Config{
		Branch:           "master",
		DistributionName: "Writing3D",
		SnapshotURL:      "https://example.com/x.zip",
	}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultGitExecutable, cfg.GitExecutable)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := Default()
	cfg.Branch = "develop"
	cfg.Timeout = time.Minute

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "develop", loaded.Branch)
	require.Equal(t, time.Minute, loaded.Timeout)
	require.Equal(t, cfg.SnapshotURL, loaded.SnapshotURL)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
