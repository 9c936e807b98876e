package process

import (
	"verpatch/process/memory_map"
)

// Process is an exclusively owned handle on one system process. It is not safe
// for concurrent use; at most one operation may drive it at a time.
type Process interface {
	// Open opens a process with the given PID for memory operations
	Open(pid ProcessID) error

	// Close closes the process and releases resources
	Close() error

	// GetPID returns the process ID
	GetPID() ProcessID

	// QueryRegion returns the first region that ends above addr, or
	// memory_map.ErrEndOfAddressSpace when there is none. A query at address 0
	// starts a new enumeration.
	memory_map.RegionQuerier

	// ReadMemory reads memory from the process at the specified address
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

	// WriteMemory writes data to the process memory at the specified address
	WriteMemory(addr ProcessMemoryAddress, data []byte) error

	MemoryProtector
}

// MemoryProtector makes non-writable memory temporarily writable
type MemoryProtector interface {
	// Unprotect makes [addr, addr+size) writable. The returned restore func puts
	// the original protection back and must be called once the write is done.
	Unprotect(addr ProcessMemoryAddress, size ProcessMemorySize) (restore func() error, err error)
}
