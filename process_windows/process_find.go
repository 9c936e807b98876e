//go:build windows

package process_windows

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"verpatch/process"

	"golang.org/x/sys/windows"
)

// WindowsProcessFinder implements the process.ProcessFinder interface with a Toolhelp32 snapshot
type WindowsProcessFinder struct{}

// NewProcessFinder creates a new WindowsProcessFinder
func NewProcessFinder() process.ProcessFinder {
	return &WindowsProcessFinder{}
}

func (f *WindowsProcessFinder) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	all, err := f.FindAllProcesses()
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.PID == pid {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("process with PID %d: %w", pid, process.ErrProcessNotFound)
}

// FindProcessByName matches the executable name exactly, ignoring case
func (f *WindowsProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	all, err := f.FindAllProcesses()
	if err != nil {
		return nil, err
	}

	selfPID := process.ProcessID(os.Getpid())
	var results []process.ProcessInfo
	for _, p := range all {
		if p.PID != selfPID && strings.EqualFold(p.Name, name) {
			results = append(results, p)
		}
	}
	return results, nil
}

func (f *WindowsProcessFinder) FindAllProcesses() ([]process.ProcessInfo, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))

	var results []process.ProcessInfo
	for err := windows.Process32First(snapshot, &pe); err == nil; err = windows.Process32Next(snapshot, &pe) {
		results = append(results, process.ProcessInfo{
			PID:  process.ProcessID(pe.ProcessID),
			PPID: process.ProcessID(pe.ParentProcessID),
			Name: windows.UTF16ToString(pe.ExeFile[:]),
		})
	}
	return results, nil
}
