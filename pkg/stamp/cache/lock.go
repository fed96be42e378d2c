package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrCacheBusy is returned when another running process holds the cache.
var ErrCacheBusy = errors.New("cache is in use by another process")

const (
	ownerFile = "owner.pid"
	lockFile  = "LOCK"
)

// recoverStaleLock removes lock artifacts left by a process that exited
// without closing the cache. It returns nil when there was nothing to
// recover or cleanup succeeded, and ErrCacheBusy when the owner is alive.
func recoverStaleLock(dir string) error {
	pid, err := readOwner(dir)
	if err != nil {
		// No owner file or invalid PID means nothing to recover.
		return nil //nolint:nilerr // missing owner is not an error condition
	}

	if isProcessRunning(pid) {
		return ErrCacheBusy
	}

	logger.Warn("cleaning up stale cache lock", "stale_pid", pid, "dir", dir)

	// Files may already be gone.
	_ = os.Remove(filepath.Join(dir, lockFile))
	_ = os.Remove(filepath.Join(dir, ownerFile))

	return nil
}

// writeOwner records the current process as the cache holder.
func writeOwner(dir string) error {
	return os.WriteFile(filepath.Join(dir, ownerFile), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// removeOwner drops the holder record if it is ours.
func removeOwner(dir string) {
	if pid, err := readOwner(dir); err == nil && pid == os.Getpid() {
		_ = os.Remove(filepath.Join(dir, ownerFile))
	}
}

func readOwner(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, ownerFile))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// isProcessRunning checks if a process with the given PID is running.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
