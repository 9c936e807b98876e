//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"verpatch/process"

	"golang.org/x/sys/unix"
)

// process_vm_writev uses the process_vm_writev syscall to write memory to another process.
// It honours the protection of the remote pages.
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(len(localBuf)),
	}

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, fmt.Errorf("process_vm_writev failed: %w", errno)
	}

	return int(n), nil
}

// WriteMemory writes data to the process memory at the specified address.
// Non-writable regions are only reachable while an Unprotect is outstanding.
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	p.mu.Lock()

	if p.pid == 0 {
		p.mu.Unlock()
		return process.ErrProcessNotOpen
	}

	pid := p.pid
	region, err := p.regionFor(addr, process.ProcessMemorySize(len(data)))
	mem := p.mem

	// Release the lock before the system call
	p.mu.Unlock()

	if err != nil {
		return err
	}

	// Copy the data so the caller's slice cannot change during the write
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	var written int
	switch {
	case region.IsWritable():
		written, err = process_vm_writev(pid, dataCopy, addr)
	case mem != nil:
		written, err = mem.WriteAt(dataCopy, int64(addr))
	default:
		return fmt.Errorf("%s: %w", addr, process.ErrNotWritable)
	}

	if err != nil {
		return fmt.Errorf("failed to write process memory at %s: %w", addr, translateError(int(pid), err))
	}

	if written != len(data) {
		return fmt.Errorf("only wrote %d of %d bytes at %s", written, len(data), addr)
	}

	return nil
}
