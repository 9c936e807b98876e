//go:build windows

package process_windows

import (
	"verpatch/process"
)

// WindowsProcessHelper implements the process.ProcessHelper interface
type WindowsProcessHelper struct {
	finder process.ProcessFinder
}

// NewHelper creates a new WindowsProcessHelper
func NewHelper() process.ProcessHelper {
	return &WindowsProcessHelper{
		finder: NewProcessFinder(),
	}
}

func (h *WindowsProcessHelper) New() process.Process {
	return New()
}

func (h *WindowsProcessHelper) NewWithPID(pid process.ProcessID) (process.Process, error) {
	return NewWithPID(pid)
}

func (h *WindowsProcessHelper) Finder() process.ProcessFinder {
	return h.finder
}

// OpenProcessByName opens the single process called name
func (h *WindowsProcessHelper) OpenProcessByName(name string) (process.Process, error) {
	return process.OpenUnique(h.finder, NewWithPID, name)
}
