package lockfile

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// Lock is an exclusive flock-backed pid file. Only one bot process per
// lock path may run at a time; a crashed process releases the kernel
// lock automatically even though the file stays behind.
type Lock struct {
	path string
	file *os.File
}

// Acquire opens or creates the pid file and takes a non-blocking
// exclusive lock on it. A second process gets an error immediately
// instead of waiting.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("another instance is already running (lock %s): %w", path, err)
	}

	if err := f.Truncate(0); err == nil {
		f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
		f.Sync()
	}

	return &Lock{path: path, file: f}, nil
}

// Release drops the lock and removes the pid file. Safe to call once
// during shutdown; errors are returned but the lock is gone regardless.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	os.Remove(l.path)
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	}
	return closeErr
}
