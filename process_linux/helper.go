//go:build linux

package process_linux

import (
	"verpatch/process"
)

// LinuxProcessHelper implements the process.ProcessHelper interface
type LinuxProcessHelper struct {
	finder process.ProcessFinder
}

// NewHelper creates a new LinuxProcessHelper
func NewHelper() process.ProcessHelper {
	return &LinuxProcessHelper{
		finder: NewProcessFinder(),
	}
}

// New creates a new Process instance
func (h *LinuxProcessHelper) New() process.Process {
	return New()
}

// NewWithPID creates a new Process instance and opens it with the given PID
func (h *LinuxProcessHelper) NewWithPID(pid process.ProcessID) (process.Process, error) {
	return NewWithPID(pid)
}

// Finder returns the /proc based finder
func (h *LinuxProcessHelper) Finder() process.ProcessFinder {
	return h.finder
}

// OpenProcessByName opens the single process called name
func (h *LinuxProcessHelper) OpenProcessByName(name string) (process.Process, error) {
	return process.OpenUnique(h.finder, NewWithPID, name)
}
