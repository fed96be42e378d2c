package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// stalePID is a PID that definitely doesn't exist.
const stalePID = 999999999

func TestRecoverStaleLock_NoOwner(t *testing.T) {
	if err := recoverStaleLock(t.TempDir()); err != nil {
		t.Errorf("recoverStaleLock() without owner file = %v, want nil", err)
	}
}

func TestRecoverStaleLock_OwnerRunning(t *testing.T) {
	dir := t.TempDir()
	if err := writeOwner(dir); err != nil {
		t.Fatalf("writeOwner() error = %v", err)
	}
	lockPath := filepath.Join(dir, lockFile)
	if err := os.WriteFile(lockPath, []byte("lock"), 0o644); err != nil {
		t.Fatalf("failed to write lock file: %v", err)
	}

	err := recoverStaleLock(dir)
	if !errors.Is(err, ErrCacheBusy) {
		t.Errorf("recoverStaleLock() = %v, want ErrCacheBusy", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Error("lock file should not be removed while the owner runs")
	}
}

func TestRecoverStaleLock_StaleOwner(t *testing.T) {
	dir := t.TempDir()
	ownerPath := filepath.Join(dir, ownerFile)
	lockPath := filepath.Join(dir, lockFile)

	if err := os.WriteFile(ownerPath, []byte(strconv.Itoa(stalePID)), 0o644); err != nil {
		t.Fatalf("failed to write owner file: %v", err)
	}
	if err := os.WriteFile(lockPath, []byte("lock"), 0o644); err != nil {
		t.Fatalf("failed to write lock file: %v", err)
	}

	if err := recoverStaleLock(dir); err != nil {
		t.Errorf("recoverStaleLock() = %v, want nil", err)
	}
	for _, path := range []string{ownerPath, lockPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", filepath.Base(path))
		}
	}
}

func TestRecoverStaleLock_InvalidOwner(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ownerFile), []byte("not-a-number"), 0o644); err != nil {
		t.Fatalf("failed to write owner file: %v", err)
	}

	if err := recoverStaleLock(dir); err != nil {
		t.Errorf("recoverStaleLock() with invalid owner = %v, want nil", err)
	}
}

func TestOpen_SecondOpenIsBusy(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := Open(dir); !errors.Is(err, ErrCacheBusy) {
		t.Errorf("second Open() = %v, want ErrCacheBusy", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ownerFile)); !os.IsNotExist(err) {
		t.Error("Close() should remove the owner file")
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() after Close() error = %v", err)
	}
	_ = reopened.Close()
}

func TestIsProcessRunning(t *testing.T) {
	if !isProcessRunning(os.Getpid()) {
		t.Error("current process should be running")
	}
	if isProcessRunning(stalePID) {
		t.Error("stale PID should not be running")
	}
	if isProcessRunning(0) {
		t.Error("PID 0 should not count as running")
	}
}
