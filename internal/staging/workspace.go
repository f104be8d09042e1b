package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Prefix marks every file and directory segmux creates in the temp dir so
// interrupted runs can be found and swept.
const Prefix = ".segmux-"

const lockName = "job.lock"

// ErrWorkspaceBusy is returned when another process holds the workspace lock.
var ErrWorkspaceBusy = errors.New("workspace locked by another job")

// Workspace is a per-job directory under the temp dir holding track files and
// the mux progress pipe. It is locked for the lifetime of the job.
type Workspace struct {
	Dir  string
	lock *flock.Flock
}

// NewWorkspace creates and locks <tempDir>/.segmux-<jobID>.
func NewWorkspace(tempDir, jobID string) (*Workspace, error) {
	dir := filepath.Join(tempDir, Prefix+jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		return nil, ErrWorkspaceBusy
	}
	return &Workspace{Dir: dir, lock: lock}, nil
}

// Path returns the location of name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Close removes the workspace and releases its lock.
func (w *Workspace) Close() error {
	if w == nil {
		return nil
	}
	removeErr := os.RemoveAll(w.Dir)
	unlockErr := w.lock.Unlock()
	return errors.Join(removeErr, unlockErr)
}
