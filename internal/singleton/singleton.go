// Package singleton enforces that only one holdvox process runs per user.
// A second instance grabbing the keyboard hook would double-fire every
// hotkey, so startup takes a pid lockfile and refuses to run if another
// live process holds it.
package singleton

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
)

// Lock is a held pid lockfile. Release it on shutdown.
type Lock struct {
	path string
}

// Acquire writes the current pid to the lockfile at path. If the file
// already exists and names a live process, Acquire fails. A lockfile left
// behind by a dead process is taken over.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}

	if data, err := os.ReadFile(path); err == nil {
		pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
		if perr == nil && pid > 0 && pidAlive(pid) {
			return nil, fmt.Errorf("another instance is running (pid %d)", pid)
		}
		// Stale lockfile from a crashed process. Take it over.
		_ = os.Remove(path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return nil, fmt.Errorf("writing lockfile: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lockfile. Only the pid that acquired the lock may
// release it; a lockfile rewritten by another process is left alone.
func (l *Lock) Release() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err != nil || pid != os.Getpid() {
		return
	}
	_ = os.Remove(l.path)
}

// pidAlive reports whether a process with the given pid exists. On Windows,
// os.FindProcess opens a handle and only succeeds for a live process, and
// Signal is unsupported there. Elsewhere signal 0 performs the existence
// check without delivering anything; EPERM still means the process exists.
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		_ = proc.Release()
		return true
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
