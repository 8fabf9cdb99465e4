package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/wphicks/w3d-updater/internal/archive"
	"github.com/wphicks/w3d-updater/internal/config"
	"github.com/wphicks/w3d-updater/internal/logger"
	"github.com/wphicks/w3d-updater/internal/scriptdir"
)

var (
	// errNoEngineURL is returned when no download URL covers this platform.
	errNoEngineURL = errors.New("no engine download URL for platform")
	// errBadHTTPStatus is returned when the engine mirror answers non-200.
	errBadHTTPStatus = errors.New("unexpected http status")
)

// enginePrefix is the directory-name prefix of extracted engine builds.
const enginePrefix = "blender-"

// Options are inputs accepted by the engine update entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// InstallPath is where engine builds live. Defaults to the parent of
	// the resolved script directory.
	InstallPath string
}

// Run installs the engine build the distribution requires, skipping the
// download when a satisfying build is already present.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "w3d-engine")

	if opts == nil {
		opts = &Options{}
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	installPath := opts.InstallPath
	if installPath == "" {
		installPath = filepath.Clean(filepath.Join(scriptdir.Resolve(os.Args[0]), ".."))
	}

	required, ok := parseVersion(cfg.Engine.RequiredVersion)
	if !ok {
		return fmt.Errorf("invalid required engine version %q", cfg.Engine.RequiredVersion)
	}

	if installedEngineSatisfies(installPath, required) {
		logger.InfoKV(ctx, "Engine already satisfies required version",
			"version", cfg.Engine.RequiredVersion, "path", installPath)

		return nil
	}

	platform := platformKey(runtime.GOOS)

	downloadURL, ok := cfg.Engine.DownloadURLs[platform]
	if !ok {
		return fmt.Errorf("%s: %w", platform, errNoEngineURL)
	}

	logger.InfoKV(ctx, "Updating engine", "platform", platform, "url", downloadURL)

	archivePath, err := download(ctx, downloadURL, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("download engine: %w", err)
	}

	defer func() {
		_ = os.Remove(archivePath)
	}()

	logger.Info(ctx, "Download complete")

	if err = archive.Extract(archivePath, installPath); err != nil {
		return fmt.Errorf("extract engine: %w", err)
	}

	logger.InfoKV(ctx, "Engine installed", "path", installPath)

	return nil
}

// platformKey maps the runtime OS onto the download-table key.
func platformKey(goos string) string {
	switch goos {
	case "darwin":
		return "mac"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// installedEngineSatisfies reports whether an extracted engine build of at
// least the required version is already present under installPath.
func installedEngineSatisfies(installPath string, required []int) bool {
	entries, err := os.ReadDir(installPath)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		installed, ok := engineVersionFromName(entry.Name())
		if ok && compareVersions(installed, required) >= 0 {
			return true
		}
	}

	return false
}

// engineVersionFromName extracts the version from an extracted build
// directory name such as "blender-2.79-linux-glibc219-x86_64".
func engineVersionFromName(name string) ([]int, bool) {
	if !strings.HasPrefix(name, enginePrefix) {
		return nil, false
	}

	rest := strings.TrimPrefix(name, enginePrefix)
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		rest = rest[:i]
	}

	return parseVersion(rest)
}

// parseVersion parses a dotted numeric version.
func parseVersion(s string) ([]int, bool) {
	fields := strings.Split(strings.TrimSpace(s), ".")
	if len(fields) == 0 {
		return nil, false
	}

	parts := make([]int, 0, len(fields))

	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, false
		}

		parts = append(parts, n)
	}

	return parts, true
}

// compareVersions orders dotted versions; missing segments count as zero.
func compareVersions(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		var av, bv int

		if i < len(a) {
			av = a[i]
		}

		if i < len(b) {
			bv = b[i]
		}

		if av != bv {
			if av < bv {
				return -1
			}

			return 1
		}
	}

	return 0
}

// download fetches the engine archive into a temp file whose name keeps the
// remote suffix, so extraction can route by format.
func download(ctx context.Context, downloadURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return "", err
	}

	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", downloadURL, response.Status, errBadHTTPStatus)
	}

	out, err := os.CreateTemp("", "w3d-engine-*"+archiveSuffix(downloadURL))
	if err != nil {
		return "", err
	}

	if _, err = io.Copy(out, response.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())

		return "", err
	}

	if err = out.Close(); err != nil {
		_ = os.Remove(out.Name())

		return "", err
	}

	return out.Name(), nil
}

// archiveSuffix returns the archive suffix of the URL's file component.
func archiveSuffix(downloadURL string) string {
	name := path.Base(downloadURL)
	if parsed, err := url.Parse(downloadURL); err == nil {
		name = path.Base(parsed.Path)
	}

	for _, suffix := range []string{".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".tar", ".zip"} {
		if strings.HasSuffix(name, suffix) {
			return suffix
		}
	}

	return filepath.Ext(name)
}
