//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"verpatch/process"
	"verpatch/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// LinuxProcess implements the process.Process interface for Linux systems
type LinuxProcess struct {
	pid process.ProcessID
	log *logger.Logger
	mm  []memory_map.MemoryRegion
	mu  sync.Mutex

	// forced write channel, open while at least one Unprotect is outstanding
	mem      *os.File
	memUsers int
}

var _ process.Process = (*LinuxProcess)(nil)

// New creates a new LinuxProcess instance
func New() process.Process {
	return &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := &LinuxProcess{}
	err := p.Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	if !procExists(int(pid)) {
		return fmt.Errorf("process with PID %d: %w", pid, process.ErrProcessNotFound)
	}

	// Probe the memory map now so permission problems surface at open time
	mm, err := memory_map.ReadMemoryMap(int(pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map of %d: %w", pid, translateError(int(pid), err))
	}
	if len(mm) == 0 && !procAlive(int(pid)) {
		return fmt.Errorf("process with PID %d: %w", pid, process.ErrProcessExited)
	}

	p.mu.Lock()
	p.pid = pid
	p.mm = mm
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	p.log.Infoln("Process opened,", len(mm), "mapped regions")

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}

	var err error
	if p.mem != nil {
		err = p.mem.Close()
		p.mem = nil
		p.memUsers = 0
	}

	// Reset process state
	p.pid = 0
	p.mm = nil

	p.log.Infoln("Process closed")
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return err
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// QueryRegion answers from a snapshot of /proc/[pid]/maps. A query at address 0
// takes a fresh snapshot, so each enumeration sees a consistent map.
func (p *LinuxProcess) QueryRegion(addr uint64) (memory_map.MemoryRegion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return memory_map.MemoryRegion{}, process.ErrProcessNotOpen
	}

	if addr == 0 {
		mm, err := memory_map.ReadMemoryMap(int(p.pid))
		if err != nil {
			return memory_map.MemoryRegion{}, fmt.Errorf("failed to read memory map: %w", translateError(int(p.pid), err))
		}
		// an exited but unreaped process reads back an empty map
		if len(mm) == 0 && !procAlive(int(p.pid)) {
			return memory_map.MemoryRegion{}, fmt.Errorf("process %d: %w", p.pid, process.ErrProcessExited)
		}
		p.mm = mm
	}

	return memory_map.FindRegion(addr, p.mm)
}

// Internal helper function that assumes the mutex is already locked
func (p *LinuxProcess) regionFor(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) (*memory_map.MemoryRegion, error) {
	region := memory_map.RegionForAddress(uint64(addr), p.mm)
	if region == nil || !region.Contains(uint64(addr), uint(size)) {
		return nil, fmt.Errorf("%s: %w", addr, process.ErrAddressNotMapped)
	}
	return region, nil
}

// translateError maps the errno values returned for a foreign process onto the
// process package errors.
func translateError(pid int, err error) error {
	switch {
	case errors.Is(err, unix.ESRCH), errors.Is(err, fs.ErrNotExist), !procAlive(pid):
		return fmt.Errorf("%w: %w", process.ErrProcessExited, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", process.ErrAccessDenied, err)
	}
	return err
}
