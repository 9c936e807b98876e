//go:build linux

package process_linux

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// matchesName reports whether the process behind /proc/<pid> is called name.
// comm and the exe basename are both tried, ignoring case. comm is capped at
// 15 bytes by the kernel, so longer names only match through exe.
func matchesName(comm, exe, name string) bool {
	if strings.EqualFold(comm, name) {
		return true
	}
	return exe != "" && strings.EqualFold(filepath.Base(exe), name)
}

// ----- helpers -----

func procExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	// Fast path: stat /proc/<pid>
	_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid)))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	// For transient errors (permission, EIO): fall back to kill 0
	err = syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// procAlive reports whether pid still owns an address space. A zombie keeps its
// /proc entry after exiting, but its maps are empty and memory calls fail.
func procAlive(pid int) bool {
	if !procExists(pid) {
		return false
	}
	_, state, err := readStatus(filepath.Join("/proc", strconv.Itoa(pid)))
	if err != nil {
		return !errors.Is(err, fs.ErrNotExist)
	}
	return state == "" || state.HasMemory()
}

func bytesTrimNL(b []byte) []byte {
	// Trim trailing '\n' if present (comm has a newline).
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}
