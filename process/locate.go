package process

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// OpenUnique finds the process called name and opens it with open.
// Zero matches is ErrProcessNotFound, more than one is ErrAmbiguousProcess.
func OpenUnique(finder ProcessFinder, open func(pid ProcessID) (Process, error), name string) (Process, error) {
	if name == "" {
		return nil, fmt.Errorf("empty process name: %w", ErrProcessNotFound)
	}

	processes, err := finder.FindProcessByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate processes: %w", err)
	}

	switch len(processes) {
	case 0:
		return nil, fmt.Errorf("no process named '%s': %w", name, ErrProcessNotFound)
	case 1:
		return open(processes[0].PID)
	}

	pids := make([]string, 0, len(processes))
	sort.Slice(processes, func(i, j int) bool { return processes[i].PID < processes[j].PID })
	for _, p := range processes {
		pids = append(pids, fmt.Sprintf("%d", p.PID))
	}
	return nil, fmt.Errorf("'%s' matches pids [%s]: %w", name, strings.Join(pids, " "), ErrAmbiguousProcess)
}

// WithProcess opens the process called name, runs fn with it and closes it.
// The process is closed exactly once on every exit path, panics included.
func WithProcess(opener ProcessOpener, name string, fn func(Process) error) (err error) {
	proc, err := opener.OpenProcessByName(name)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := proc.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close: %w", cerr))
		}
	}()

	return fn(proc)
}

// WaitForProcess polls finder until a process called name shows up or timeout elapses.
func WaitForProcess(finder ProcessFinder, name string, timeout time.Duration) ([]ProcessInfo, error) {
	deadline := time.Now().Add(timeout)
	tick := 100 * time.Millisecond
	for {
		processes, err := finder.FindProcessByName(name)
		if err != nil {
			return nil, err
		}
		if len(processes) > 0 {
			return processes, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("'%s' did not start within %s: %w", name, timeout, ErrProcessNotFound)
		}
		time.Sleep(tick)
		if tick < 500*time.Millisecond {
			tick += 50 * time.Millisecond
		}
	}
}
