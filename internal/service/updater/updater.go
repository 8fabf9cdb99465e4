package updater

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/wphicks/w3d-updater/internal/config"
	"github.com/wphicks/w3d-updater/internal/logger"
	"github.com/wphicks/w3d-updater/internal/repository/marker"
	"github.com/wphicks/w3d-updater/internal/scriptdir"
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// ScriptPath is the invocation path of the running updater. Defaults
	// to os.Args[0]; the installation root is derived from it.
	ScriptPath string
	// Branch optionally overrides the configured remote branch.
	Branch string
}

// Run resolves the installation layout, selects an update strategy based on
// git availability, and executes it. It is the public entry point for the CLI.
//
// The returned outcome is for user-visible reporting; a non-nil error means
// the process should exit non-zero.
func Run(ctx context.Context, opts *Options) (Outcome, error) {
	ctx = logger.WithName(ctx, "w3d-updater")

	if opts == nil {
		opts = &Options{}
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return OutcomeUnknown, err
	}

	if opts.Branch != "" {
		cfg.Branch = opts.Branch
	}

	scriptPath := opts.ScriptPath
	if scriptPath == "" {
		scriptPath = os.Args[0]
	}

	scriptDir := scriptdir.Resolve(scriptPath)
	root := installRoot(scriptDir)
	distDir := filepath.Join(root, cfg.DistributionName)

	logger.InfoKV(ctx, "Resolved installation layout",
		"script_dir", scriptDir, "root", root, "distribution", distDir)

	warnIfAnotherUpdaterRuns(ctx)

	strategy, gitPath := SelectStrategy(cfg.GitExecutable, exec.LookPath)
	logger.InfoKV(ctx, "Selected update strategy", "strategy", strategy.String())

	var outcome Outcome

	switch strategy {
	case StrategyVcs:
		vcs := newVcsUpdater(cfg, gitPath, distDir,
			marker.NewFileRepository(filepath.Join(root, MarkerFilename)))
		outcome, err = vcs.Update(ctx)
	case StrategyArchive:
		outcome, err = newArchiveUpdater(cfg, root).Update(ctx)
	}

	if err != nil {
		logger.ErrorKV(ctx, "Update failed", "outcome", outcome.String(), "error", err)
		return outcome, err
	}

	logger.InfoKV(ctx, "Update finished", "outcome", outcome.String())

	return outcome, nil
}

// installRoot returns the directory levelsAboveScript levels above the
// script directory: the assumed root containing the distribution directory.
func installRoot(scriptDir string) string {
	segments := make([]string, 0, levelsAboveScript+1)
	segments = append(segments, scriptDir)

	for i := 0; i < levelsAboveScript; i++ {
		segments = append(segments, "..")
	}

	return filepath.Clean(filepath.Join(segments...))
}
