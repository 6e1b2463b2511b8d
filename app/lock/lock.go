package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// FileLock is an exclusive, non-blocking advisory lock on a well-known path.
// The lock belongs to the open file description, so the kernel drops it when
// the holding process exits for any reason, including SIGKILL.
type FileLock struct {
	path string
	mu   sync.Mutex
	file *os.File
}

func New(path string) *FileLock {
	return &FileLock{path: path}
}

func (l *FileLock) Path() string {
	return l.path
}

// Acquire takes the lock without waiting. It returns false when another live
// process holds it.
func (l *FileLock) Acquire() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	// No O_TRUNC: the current holder's diagnostics stay readable until we own it
	file, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock %s: %w", l.path, err)
	}

	l.file = file
	l.writeHolder()

	return true, nil
}

// Release unlocks and closes the lock file. Calling it without holding the lock
// is a no-op.
func (l *FileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close lock file: %w", closeErr)
	}
	return nil
}

func (l *FileLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file != nil
}

// Holder returns the diagnostic content left by the last holder. It is for log
// messages only and says nothing about whether the lock is held.
func (l *FileLock) Holder() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(string(data)), " ")
}

func (l *FileLock) writeHolder() {
	if err := l.file.Truncate(0); err != nil {
		return
	}
	info := fmt.Sprintf("%d\n%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	_, _ = l.file.WriteAt([]byte(info), 0)
	_ = l.file.Sync()
}
