package updater

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/wphicks/w3d-updater/internal/config"
	"github.com/wphicks/w3d-updater/internal/logger"
	"github.com/wphicks/w3d-updater/internal/repository/marker"
)

// vcsUpdater brings the working copy to the latest remote revision with a
// fetch and hard reset, recording the prior revision for manual rollback.
type vcsUpdater struct {
	// git is the resolved path of the git client.
	git string
	// dir is the distribution working copy; every git command runs there.
	dir string
	// branch is the remote branch the working copy is reset to.
	branch string
	// timeout bounds each git invocation.
	timeout time.Duration
	// markers records the pre-update revision.
	markers marker.Repository
}

// newVcsUpdater wires the strategy with explicit paths; the process working
// directory is never changed.
func newVcsUpdater(cfg *config.Config, gitPath, distDir string, markers marker.Repository) *vcsUpdater {
	return &vcsUpdater{
		git:     gitPath,
		dir:     distDir,
		branch:  cfg.Branch,
		timeout: cfg.Timeout,
		markers: markers,
	}
}

// Update records the current revision, fetches the remote and hard-resets
// the working copy to it. The rollback marker is written before any
// destructive step, so a failed fetch or reset still leaves the marker
// reflecting the correct pre-update state. Re-running against an unchanged
// remote is a no-op reset.
func (u *vcsUpdater) Update(ctx context.Context) (Outcome, error) {
	revision, err := u.currentRevision(ctx)
	if err != nil {
		return OutcomeFetchFailed, fmt.Errorf("read current revision: %w", err)
	}

	if err = u.markers.Save(ctx, revision); err != nil {
		return OutcomeFetchFailed, fmt.Errorf("record rollback revision: %w", err)
	}

	logger.InfoKV(ctx, "Recorded rollback revision", "revision", revision)

	if _, err = u.runGit(ctx, "fetch", remoteName); err != nil {
		return OutcomeFetchFailed, fmt.Errorf("fetch %s: %w", remoteName, err)
	}

	target := remoteName + "/" + u.branch
	if _, err = u.runGit(ctx, "reset", "--hard", target); err != nil {
		// The working copy is left in whatever state the failed reset
		// produced; the marker still names the last good revision.
		return OutcomeFetchFailed, fmt.Errorf("reset to %s: %w", target, err)
	}

	logger.InfoKV(ctx, "Working copy reset", "target", target)

	return OutcomeSuccess, nil
}

// currentRevision reads the revision the working copy is at.
func (u *vcsUpdater) currentRevision(ctx context.Context) (string, error) {
	out, err := u.runGit(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}

// runGit executes a git command inside the working copy, returning combined
// output. Failures carry the command line and its output for diagnostics.
func (u *vcsUpdater) runGit(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, u.git, args...)
	cmd.Dir = u.dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}

	return string(out), nil
}
