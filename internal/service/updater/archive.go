package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/wphicks/w3d-updater/internal/archive"
	"github.com/wphicks/w3d-updater/internal/config"
	"github.com/wphicks/w3d-updater/internal/logger"
)

// errBadHTTPStatus is returned when the snapshot endpoint answers non-200.
var errBadHTTPStatus = errors.New("unexpected http status")

// archiveUpdater replaces the distribution from a zip snapshot of the remote
// default branch. It is a linear pipeline of fallible steps: backup,
// download, extract, remove, rename. The first failure short-circuits and
// each step documents the state it leaves behind.
type archiveUpdater struct {
	// root is the installation root containing the distribution directory.
	root string
	// distName is the distribution directory name under root.
	distName string
	// branch names the snapshot's top-level directory (distName-branch).
	branch string
	// snapshotURL serves the zip snapshot of the project.
	snapshotURL string
	// timeout bounds the download.
	timeout time.Duration
	// client performs the snapshot download; it follows redirects.
	client *http.Client
}

// newArchiveUpdater wires the strategy against the installation root; the
// process working directory is never changed.
func newArchiveUpdater(cfg *config.Config, root string) *archiveUpdater {
	return &archiveUpdater{
		root:        root,
		distName:    cfg.DistributionName,
		branch:      cfg.Branch,
		snapshotURL: cfg.SnapshotURL,
		timeout:     cfg.Timeout,
		client:      http.DefaultClient,
	}
}

// Update runs the backup-download-extract-replace pipeline.
//
// Only the download failure is reported as OutcomeDownloadFailed; at that
// point the distribution directory is completely untouched. Extraction,
// removal and rename failures are fatal too, since past the removal step the
// sequence is not reversible, but they leave the backup and any extracted
// tree in place for manual recovery.
func (u *archiveUpdater) Update(ctx context.Context) (Outcome, error) {
	distDir := filepath.Join(u.root, u.distName)

	// Step 1: best-effort backup; its failure is a recoverable warning.
	backupPath := filepath.Join(u.root, BackupFilename)
	if err := archive.CreateZip(distDir, backupPath, u.distName); err != nil {
		logger.WarnKV(ctx, "Backup failed, continuing", "path", backupPath, "error", err)
	} else {
		logger.InfoKV(ctx, "Backup created", "path", backupPath)
	}

	// Step 2: download; the only failure leaving the distribution untouched.
	snapshotPath := filepath.Join(u.root, u.distName+".zip")
	if err := u.download(ctx, snapshotPath); err != nil {
		return OutcomeDownloadFailed, fmt.Errorf("download snapshot: %w", err)
	}

	logger.InfoKV(ctx, "Snapshot downloaded", "path", snapshotPath)

	// Step 3: extract next to the old tree. On failure the old tree is
	// intact and the snapshot file remains for inspection.
	if err := archive.Extract(snapshotPath, u.root); err != nil {
		return OutcomeUnknown, fmt.Errorf("extract snapshot: %w", err)
	}

	// Step 4: remove the old tree. On failure a partially removed
	// distribution remains alongside the extracted one; the backup is the
	// recovery path.
	if err := os.RemoveAll(distDir); err != nil {
		return OutcomeUnknown, fmt.Errorf("remove old distribution: %w", err)
	}

	// Step 5: move the extracted tree into place. On failure the
	// distribution directory is missing and the extracted tree still
	// carries the snapshot name.
	extractedDir := filepath.Join(u.root, u.distName+"-"+u.branch)
	if err := os.Rename(extractedDir, distDir); err != nil {
		return OutcomeUnknown, fmt.Errorf("rename extracted tree: %w", err)
	}

	// The snapshot file is spent once the swap happened.
	if err := os.Remove(snapshotPath); err != nil {
		logger.WarnKV(ctx, "Unable to remove downloaded snapshot", "path", snapshotPath, "error", err)
	}

	logger.InfoKV(ctx, "Distribution replaced", "path", distDir)

	return OutcomeSuccess, nil
}

// download fetches the snapshot to the provided path. A partial file left by
// a failed transfer is removed so the fixed download target never holds a
// truncated archive.
func (u *archiveUpdater) download(ctx context.Context, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.snapshotURL, http.NoBody)
	if err != nil {
		return err
	}

	response, err := u.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", u.snapshotURL, response.Status, errBadHTTPStatus)
	}

	out, err := os.Create(filepath.Clean(destPath))
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, response.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)

		return err
	}

	return out.Close()
}
