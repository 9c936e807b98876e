//go:build linux

package process_linux

import (
	"fmt"
	"os"

	"verpatch/process"
)

// Unprotect opens /proc/[pid]/mem for writing. The kernel applies writes through
// that file even to read-only private mappings (copy-on-write), the same path
// debuggers use to plant breakpoints, so page protection itself never changes.
// restore closes the file once the last outstanding caller is done.
func (p *LinuxProcess) Unprotect(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) (func() error, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	region, err := p.regionFor(addr, size)
	if err != nil {
		return nil, err
	}

	if region.IsWritable() {
		return func() error { return nil }, nil
	}

	if p.mem == nil {
		f, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", p.pid), os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to open memory of %d: %w", p.pid, translateError(int(p.pid), err))
		}
		p.mem = f
	}
	p.memUsers++

	released := false
	return func() error {
		p.mu.Lock()
		defer p.mu.Unlock()

		if released || p.mem == nil {
			return nil
		}
		released = true

		p.memUsers--
		if p.memUsers > 0 {
			return nil
		}
		err := p.mem.Close()
		p.mem = nil
		return err
	}, nil
}
