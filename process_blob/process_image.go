package process_blob

import (
	"fmt"
	"sort"

	"verpatch/process"
	"verpatch/process/memory_map"
)

// ProcessImage implements process.Process over a set of blobs. It stands in
// for a live process wherever a deterministic address space is needed.
type ProcessImage struct {
	PID  process.ProcessID
	Name string

	blobs []*ProcessBlob

	// Fault injection
	ExitAfterReads int                                   // reads that succeed before the process "exits", 0 for never
	CorruptWrites  map[process.ProcessMemoryAddress]bool // writes at these addresses land with flipped bits

	// Counters
	Reads     int
	Writes    int
	Queries   int
	Closes    int
	Restores  int
	unprotect map[process.ProcessMemoryAddress]int

	open   bool
	exited bool
}

var _ process.Process = (*ProcessImage)(nil)

// NewProcessImage returns an open image holding blobs
func NewProcessImage(pid process.ProcessID, name string, blobs ...*ProcessBlob) *ProcessImage {
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].baseaddress < blobs[j].baseaddress })
	return &ProcessImage{
		PID:           pid,
		Name:          name,
		blobs:         blobs,
		CorruptWrites: make(map[process.ProcessMemoryAddress]bool),
		unprotect:     make(map[process.ProcessMemoryAddress]int),
		open:          true,
	}
}

// Outstanding returns how many Unprotect calls have not been restored yet
func (p *ProcessImage) Outstanding() int {
	n := 0
	for _, c := range p.unprotect {
		n += c
	}
	return n
}

func (p *ProcessImage) Open(pid process.ProcessID) error {
	if pid != p.PID {
		return fmt.Errorf("image holds PID %d, not %d: %w", p.PID, pid, process.ErrProcessNotFound)
	}
	p.open = true
	return nil
}

func (p *ProcessImage) Close() error {
	p.Closes++
	if !p.open {
		return process.ErrProcessNotOpen
	}
	p.open = false
	return nil
}

func (p *ProcessImage) GetPID() process.ProcessID {
	return p.PID
}

func (p *ProcessImage) check() error {
	if !p.open {
		return process.ErrProcessNotOpen
	}
	if p.exited {
		return process.ErrProcessExited
	}
	return nil
}

func (p *ProcessImage) blobFor(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) (*ProcessBlob, error) {
	for _, b := range p.blobs {
		if b.contains(addr, size) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", addr, process.ErrAddressNotMapped)
}

func (p *ProcessImage) QueryRegion(addr uint64) (memory_map.MemoryRegion, error) {
	p.Queries++
	if err := p.check(); err != nil {
		return memory_map.MemoryRegion{}, err
	}

	regions := make([]memory_map.MemoryRegion, 0, len(p.blobs))
	for _, b := range p.blobs {
		regions = append(regions, b.Region())
	}
	return memory_map.FindRegion(addr, regions)
}

func (p *ProcessImage) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if p.ExitAfterReads > 0 && p.Reads >= p.ExitAfterReads {
		p.exited = true
		return nil, process.ErrProcessExited
	}
	p.Reads++

	b, err := p.blobFor(addr, size)
	if err != nil {
		return nil, err
	}
	return b.ReadMemory(addr, size)
}

func (p *ProcessImage) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if err := p.check(); err != nil {
		return err
	}
	p.Writes++

	b, err := p.blobFor(addr, process.ProcessMemorySize(len(data)))
	if err != nil {
		return err
	}

	if p.CorruptWrites[addr] {
		flipped := make([]byte, len(data))
		for i := range data {
			flipped[i] = ^data[i]
		}
		data = flipped
	}
	return b.writeMemory(addr, data, p.unprotect[b.baseaddress] > 0)
}

func (p *ProcessImage) Unprotect(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) (func() error, error) {
	if err := p.check(); err != nil {
		return nil, err
	}

	b, err := p.blobFor(addr, size)
	if err != nil {
		return nil, err
	}
	if b.lockProtection {
		return nil, fmt.Errorf("protection of %s is locked", addr)
	}

	p.unprotect[b.baseaddress]++
	restored := false
	return func() error {
		if restored {
			return nil
		}
		restored = true
		p.unprotect[b.baseaddress]--
		p.Restores++
		return nil
	}, nil
}

func (p *ProcessImage) info() *process.ProcessInfo {
	state := process.ProcessSleeping
	if p.exited {
		state = process.ProcessDead
	}
	return &process.ProcessInfo{PID: p.PID, Name: p.Name, State: state}
}
