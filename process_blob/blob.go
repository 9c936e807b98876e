package process_blob

import (
	"errors"
	"fmt"

	"verpatch/process"
	"verpatch/process/memory_map"
)

// ProcessBlob is one region of a synthetic address space
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
	perms       string
	committed   bool
	path        string

	lockProtection bool // Unprotect fails
	failReads      bool // every read fails
}

// NewProcessBlob returns a committed read-write region holding data
func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
		perms:       "rw-p",
		committed:   true,
	}
}

func (p *ProcessBlob) WithPerms(perms string) *ProcessBlob {
	p.perms = perms
	return p
}

func (p *ProcessBlob) WithPath(path string) *ProcessBlob {
	p.path = path
	return p
}

// Reserved marks the region as reserved, not committed
func (p *ProcessBlob) Reserved() *ProcessBlob {
	p.committed = false
	return p
}

// LockProtection makes Unprotect fail for this region
func (p *ProcessBlob) LockProtection() *ProcessBlob {
	p.lockProtection = true
	return p
}

// FailReads makes every read of this region fail
func (p *ProcessBlob) FailReads() *ProcessBlob {
	p.failReads = true
	return p
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) Region() memory_map.MemoryRegion {
	return memory_map.MemoryRegion{
		Address:   uint64(p.baseaddress),
		Size:      uint(len(p.data)),
		Perms:     p.perms,
		Committed: p.committed,
		Path:      p.path,
	}
}

func (p *ProcessBlob) contains(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	return addr >= p.baseaddress && uint64(addr)+uint64(size) <= uint64(p.baseaddress)+uint64(len(p.data))
}

func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if !p.contains(addr, size) {
		return nil, errors.New("address out of bounds")
	}
	if p.failReads || !p.committed || !memory_map.IsReadablePerms(p.perms) {
		return nil, fmt.Errorf("read at %s: %w", addr, process.ErrAddressNotMapped)
	}
	offset := addr - p.baseaddress
	result := make([]byte, size)
	copy(result, p.data[offset:uint64(offset)+uint64(size)])
	return result, nil
}

func (p *ProcessBlob) writeMemory(addr process.ProcessMemoryAddress, data []byte, force bool) error {
	if !p.contains(addr, process.ProcessMemorySize(len(data))) {
		return errors.New("address out of bounds")
	}
	if !force && !memory_map.IsWritablePerms(p.perms) {
		return fmt.Errorf("%s: %w", addr, process.ErrNotWritable)
	}
	offset := addr - p.baseaddress
	copy(p.data[offset:], data)
	return nil
}
