package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const lockFileName = ".posttls.lock"

// LockError indicates the configuration directory lock could not be
// acquired. A second installer instance is operating on the same
// configuration root.
type LockError struct {
	Dir string
	Err error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("LOCK_ERROR: unable to lock %s: %v", e.Dir, e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// IsLockError reports whether err is a lock acquisition failure.
func IsLockError(err error) bool {
	var le *LockError
	return errors.As(err, &le)
}

// DirLock is an exclusive advisory lock on a configuration directory,
// held as a pid file. It stops two installer instances from modifying
// the same main.cf concurrently.
type DirLock struct {
	path string
}

// AcquireDirLock takes the lock for dir. A lock file left behind by a
// dead process is reclaimed and the acquisition retried once; a lock
// held by a live process is a LockError.
func AcquireDirLock(dir string) (*DirLock, error) {
	path := filepath.Join(dir, lockFileName)

	if err := createLockFile(path); err != nil {
		if !os.IsExist(err) {
			return nil, &LockError{Dir: dir, Err: err}
		}
		if lockHolderAlive(path) {
			return nil, &LockError{Dir: dir, Err: fmt.Errorf("already locked by a running process")}
		}
		if err := claimStaleLock(path); err != nil {
			return nil, &LockError{Dir: dir, Err: fmt.Errorf("reclaiming stale lock: %w", err)}
		}
		if err := createLockFile(path); err != nil {
			return nil, &LockError{Dir: dir, Err: err}
		}
	}
	return &DirLock{path: path}, nil
}

// claimStaleLock removes a stale lock file so that exactly one of any
// number of concurrent contenders succeeds. The file is renamed aside
// first; rename of the same source succeeds for a single caller, the
// rest fail and report LockError instead of removing a lock a faster
// contender has already replaced.
func claimStaleLock(path string) error {
	claimed := fmt.Sprintf("%s.reclaim.%d", path, os.Getpid())
	if err := os.Rename(path, claimed); err != nil {
		return err
	}
	return os.Remove(claimed)
}

// Close releases the lock.
func (l *DirLock) Close() error {
	return os.Remove(l.path)
}

// Path returns the lock file location.
func (l *DirLock) Path() string {
	return l.path
}

func createLockFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// lockHolderAlive reads the pid from an existing lock file and probes
// the process with signal 0. Unreadable or malformed lock files count
// as stale.
func lockHolderAlive(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
