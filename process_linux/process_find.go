//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"verpatch/process"
)

// LinuxProcessFinder implements the process.ProcessFinder interface
type LinuxProcessFinder struct {
	// Root is the procfs mount point, /proc unless overridden
	Root string
}

// NewProcessFinder creates a new LinuxProcessFinder
func NewProcessFinder() process.ProcessFinder {
	return &LinuxProcessFinder{Root: "/proc"}
}

// FindProcessByPID finds a process by its PID
func (f *LinuxProcessFinder) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	info, err := f.getProcessInfo(pid)
	if err != nil {
		return nil, fmt.Errorf("process with PID %d: %w: %w", pid, process.ErrProcessNotFound, err)
	}
	return info, nil
}

// FindProcessByName finds live processes whose comm or exe basename equals name, ignoring case
func (f *LinuxProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	all, err := f.FindAllProcesses()
	if err != nil {
		return nil, err
	}

	selfPID := process.ProcessID(os.Getpid())
	var results []process.ProcessInfo
	for _, info := range all {
		if info.PID == selfPID || !info.State.HasMemory() {
			continue
		}
		if matchesName(info.Name, info.Exe, name) {
			results = append(results, info)
		}
	}

	return results, nil
}

// FindAllProcesses returns information about all running processes
func (f *LinuxProcessFinder) FindAllProcesses() ([]process.ProcessInfo, error) {
	// List all directories in /proc that are numbers (PIDs)
	entries, err := os.ReadDir(f.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Root, err)
	}

	var results []process.ProcessInfo

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			// Not a PID directory
			continue
		}

		info, err := f.getProcessInfo(process.ProcessID(pid))
		if err != nil {
			// Process may have terminated while we were reading
			continue
		}

		results = append(results, *info)
	}

	return results, nil
}

// Helper function to get process information
func (f *LinuxProcessFinder) getProcessInfo(pid process.ProcessID) (*process.ProcessInfo, error) {
	procPath := filepath.Join(f.Root, strconv.Itoa(int(pid)))

	// Read process name from /proc/<pid>/comm
	nameBytes, err := os.ReadFile(filepath.Join(procPath, "comm"))
	if err != nil {
		return nil, fmt.Errorf("failed to read process name: %w", err)
	}
	name := string(bytesTrimNL(nameBytes))

	// Read executable path from /proc/<pid>/exe symlink
	exe, err := os.Readlink(filepath.Join(procPath, "exe"))
	if err != nil {
		// Some processes don't have an exe (e.g., kernel threads), or it is not ours to read
		exe = ""
	}

	// status may be unreadable for a process that is going away
	ppid, state, _ := readStatus(procPath)

	return &process.ProcessInfo{
		PID:   pid,
		PPID:  ppid,
		Name:  name,
		Exe:   exe,
		State: state,
	}, nil
}

// readStatus returns the parent PID and state code from <procPath>/status
func readStatus(procPath string) (process.ProcessID, process.ProcessState, error) {
	statusBytes, err := os.ReadFile(filepath.Join(procPath, "status"))
	if err != nil {
		return 0, "", err
	}

	var (
		ppid  process.ProcessID
		state process.ProcessState
	)
	for _, line := range strings.Split(string(statusBytes), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "PPid":
			if ppidVal, err := strconv.Atoi(value); err == nil {
				ppid = process.ProcessID(ppidVal)
			}
		case "State":
			if len(value) > 0 {
				state = process.ProcessState(value[0:1]) // First character is the state code
			}
		}
	}
	return ppid, state, nil
}
