package site

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/wphicks/w3d-updater/internal/config"
	"github.com/wphicks/w3d-updater/internal/logger"
	"github.com/wphicks/w3d-updater/internal/scriptdir"
)

// DefaultPythonExecutable is the interpreter probed for site directories.
const DefaultPythonExecutable = "python3"

// sitePackagesScript asks the interpreter for its site directories.
const sitePackagesScript = "import json, site, sys; json.dump(site.getsitepackages(), sys.stdout)"

const pthFilePermissions = 0o644

// Options are inputs accepted by the site amender entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// ScriptPath is the invocation path of the running updater; the
	// distribution path registered in the .pth file is derived from it.
	ScriptPath string
	// PythonExecutable overrides the interpreter to query. Defaults to
	// DefaultPythonExecutable.
	PythonExecutable string
}

// Run writes a .pth file naming the distribution path into every
// site-packages directory of the target interpreter, so the distribution's
// Python packages become importable.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "w3d-site")

	if opts == nil {
		opts = &Options{}
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	scriptPath := opts.ScriptPath
	if scriptPath == "" {
		scriptPath = os.Args[0]
	}

	// The script lives one level below the distribution root.
	distPath := filepath.Clean(filepath.Join(scriptdir.Resolve(scriptPath), ".."))

	python := opts.PythonExecutable
	if python == "" {
		python = DefaultPythonExecutable
	}

	siteDirs, err := sitePackageDirs(ctx, python, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("query site directories: %w", err)
	}

	pthName := cfg.DistributionName + ".pth"
	amended := 0

	for _, dir := range siteDirs {
		if !strings.Contains(filepath.Base(dir), "site-packages") {
			continue
		}

		pthPath := filepath.Join(dir, pthName)
		if err = os.WriteFile(pthPath, []byte(distPath+"\n"), pthFilePermissions); err != nil {
			return fmt.Errorf("write %s: %w", pthPath, err)
		}

		logger.InfoKV(ctx, "Registered distribution path", "pth", pthPath, "path", distPath)

		amended++
	}

	if amended == 0 {
		logger.Warn(ctx, "No site-packages directory found; distribution not registered")
	}

	return nil
}

// sitePackageDirs runs the interpreter and decodes its site directory list.
func sitePackageDirs(ctx context.Context, python string, timeout time.Duration) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, python, "-c", sitePackagesScript)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", python, err)
	}

	var dirs []string
	if err = json.Unmarshal(out, &dirs); err != nil {
		return nil, fmt.Errorf("decode site directories: %w", err)
	}

	return dirs, nil
}
