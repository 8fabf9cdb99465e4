package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the update sources and names shared by the updater commands.
type Config struct {
	// RemoteURL is the git remote holding the distribution sources.
	RemoteURL string `yaml:"remote_url"`
	// Branch is the remote branch the working copy is reset to.
	Branch string `yaml:"branch"`
	// SnapshotURL is the zip snapshot of the default branch, used when no
	// git client is available on the host.
	SnapshotURL string `yaml:"snapshot_url"`
	// DistributionName is the directory name of the working copy under the
	// installation root.
	DistributionName string `yaml:"distribution_name"`
	// GitExecutable is the name (or path) of the git client to probe for.
	GitExecutable string `yaml:"git_executable"`
	// Timeout bounds each external call (git, download, extraction).
	Timeout time.Duration `yaml:"timeout"`
	// Engine configures the optional engine (Blender) update.
	Engine EngineConfig `yaml:"engine"`
}

// EngineConfig describes the engine snapshot required by the distribution.
type EngineConfig struct {
	// RequiredVersion is the minimum engine version, e.g. "2.79".
	RequiredVersion string `yaml:"required_version"`
	// DownloadURLs maps a platform key (linux, mac, windows) to the
	// archive holding the engine build for that platform.
	DownloadURLs map[string]string `yaml:"download_urls"`
}

const (
	// DefaultConfigFilename is the default filename for updater settings.
	DefaultConfigFilename = "w3d-updater-settings.yaml"

	// DefaultRemoteURL is the upstream repository of the distribution.
	DefaultRemoteURL = "https://github.com/wphicks/Writing3D.git"

	// DefaultBranch is the remote branch tracked by updates.
	DefaultBranch = "master"

	// DefaultSnapshotURL serves a zip of the default branch.
	DefaultSnapshotURL = "https://github.com/wphicks/Writing3D/archive/master.zip"

	// DefaultDistributionName is the working copy directory name.
	DefaultDistributionName = "Writing3D"

	// DefaultGitExecutable is the git client probed on the host.
	DefaultGitExecutable = "git"

	// DefaultTimeout bounds each external call.
	DefaultTimeout = 10 * time.Minute

	// DefaultEngineVersion is the engine release the distribution targets.
	DefaultEngineVersion = "2.79"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBranchRequired is returned when the branch name is missing.
	errBranchRequired = errors.New("branch must be provided")
	// errDistributionNameInvalid is returned when the distribution name is
	// empty or not a plain directory name.
	errDistributionNameInvalid = errors.New("distribution name must be a plain directory name")
)

// Default returns a configuration with all values set to the distribution defaults.
func Default() *Config {
	return &Config{
		RemoteURL:        DefaultRemoteURL,
		Branch:           DefaultBranch,
		SnapshotURL:      DefaultSnapshotURL,
		DistributionName: DefaultDistributionName,
		GitExecutable:    DefaultGitExecutable,
		Timeout:          DefaultTimeout,
		Engine: EngineConfig{
			RequiredVersion: DefaultEngineVersion,
			DownloadURLs: map[string]string{
				"linux": "https://mirror.clarkson.edu/blender/release/Blender2.79/" +
					"blender-2.79-linux-glibc219-x86_64.tar.bz2",
				"mac": "https://mirror.clarkson.edu/blender/release/Blender2.79/" +
					"blender-2.79-macOS-10.6.tar.gz",
				"windows": "https://mirror.clarkson.edu/blender/release/Blender2.79/" +
					"blender-2.79-windows64.zip",
			},
		},
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file is not an error: the updater is usable without any settings
// file, in which case the distribution defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.Branch) == "" {
		return errBranchRequired
	}

	if cfg.DistributionName == "" || cfg.DistributionName != filepath.Base(cfg.DistributionName) {
		return fmt.Errorf("%q: %w", cfg.DistributionName, errDistributionNameInvalid)
	}

	if cfg.GitExecutable == "" {
		cfg.GitExecutable = DefaultGitExecutable
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.RemoteURL != "" {
		if _, err := url.ParseRequestURI(cfg.RemoteURL); err != nil {
			return fmt.Errorf("invalid remote URL: %w", err)
		}
	}

	if cfg.SnapshotURL != "" {
		if _, err := url.ParseRequestURI(cfg.SnapshotURL); err != nil {
			return fmt.Errorf("invalid snapshot URL: %w", err)
		}
	}

	for platform, downloadURL := range cfg.Engine.DownloadURLs {
		if _, err := url.ParseRequestURI(downloadURL); err != nil {
			return fmt.Errorf("invalid engine URL for %s: %w", platform, err)
		}
	}

	return nil
}
