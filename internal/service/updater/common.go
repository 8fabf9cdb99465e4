package updater

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"

	"github.com/wphicks/w3d-updater/internal/logger"
)

const (
	// MarkerFilename is the rollback marker written next to the
	// distribution directory before a destructive reset.
	MarkerFilename = "last_good.txt"

	// BackupFilename is the zip snapshot of the distribution taken before
	// an archive-based replacement.
	BackupFilename = "last_good.zip"

	// remoteName is the git remote updates are fetched from.
	remoteName = "origin"

	// levelsAboveScript is how far above the script directory the
	// installation root sits.
	levelsAboveScript = 3
)

// Outcome is the user-visible result of an update attempt.
type Outcome int

const (
	// OutcomeUnknown means no strategy ran to completion or failure.
	OutcomeUnknown Outcome = iota
	// OutcomeSuccess means the distribution now matches the remote.
	OutcomeSuccess
	// OutcomeFetchFailed means the git fetch or reset failed; the working
	// copy is left in whatever state the failed command produced.
	OutcomeFetchFailed
	// OutcomeDownloadFailed means the snapshot download failed; the
	// distribution directory is untouched.
	OutcomeDownloadFailed
)

// String returns the reporting name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFetchFailed:
		return "fetch failed"
	case OutcomeDownloadFailed:
		return "download failed"
	case OutcomeUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Strategy identifies one of the two mutually exclusive update mechanisms.
type Strategy int

const (
	// StrategyVcs updates through the git client.
	StrategyVcs Strategy = iota
	// StrategyArchive replaces the distribution from a zip snapshot.
	StrategyArchive
)

// String returns the reporting name of the strategy.
func (s Strategy) String() string {
	if s == StrategyVcs {
		return "vcs"
	}

	return "archive"
}

// SelectStrategy probes for the git client through lookPath and picks the
// update mechanism. Absence of the client is not an error: it is the
// selection signal for the archive fallback. The resolved client path is
// returned alongside the choice.
func SelectStrategy(gitExecutable string, lookPath func(string) (string, error)) (Strategy, string) {
	path, err := lookPath(gitExecutable)
	if err != nil {
		return StrategyArchive, ""
	}

	return StrategyVcs, path
}

// warnIfAnotherUpdaterRuns scans the process table for another instance of
// this executable and logs a warning. Concurrent updates of one distribution
// directory are unsafe and remain a documented usage constraint; this check
// is advisory only and never blocks.
func warnIfAnotherUpdaterRuns(ctx context.Context) {
	processes, err := ps.Processes()
	if err != nil {
		logger.DebugKV(ctx, "Unable to enumerate processes", "error", err)
		return
	}

	selfName := filepath.Base(os.Args[0])
	selfPid := os.Getpid()

	for _, process := range processes {
		if process.Pid() == selfPid {
			continue
		}

		if process.Executable() != selfName {
			continue
		}

		logger.WarnKV(ctx,
			"Another updater instance appears to be running; concurrent updates of one distribution are unsafe",
			"pid", process.Pid())

		return
	}
}
