//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"verpatch/process"
	"verpatch/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"golang.org/x/sys/windows"
)

// Rights needed to query, read and write memory. No terminate, no full control.
const PROCESS_PATCH_ACCESS = windows.PROCESS_QUERY_INFORMATION |
	windows.PROCESS_VM_READ |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_OPERATION

const (
	stillActive = 259
	memImage    = 0x1000000
)

type module struct {
	name string
	base uint64
	size uint64
}

// WindowsProcess implements the process.Process interface for Windows systems
type WindowsProcess struct {
	pid     process.ProcessID
	handle  windows.Handle
	log     *logger.Logger
	modules []module
	mu      sync.Mutex
}

var _ process.Process = (*WindowsProcess)(nil)

// New creates a new WindowsProcess instance
func New() process.Process {
	return &WindowsProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new WindowsProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := &WindowsProcess{}
	err := p.Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WindowsProcess) Open(pid process.ProcessID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	handle, err := windows.OpenProcess(PROCESS_PATCH_ACCESS, false, uint32(pid))
	if err != nil {
		switch {
		case errors.Is(err, windows.ERROR_ACCESS_DENIED):
			return fmt.Errorf("OpenProcess(%d): %w: %w", pid, process.ErrAccessDenied, err)
		case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
			return fmt.Errorf("OpenProcess(%d): %w: %w", pid, process.ErrProcessNotFound, err)
		}
		return fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}

	p.pid = pid
	p.handle = handle
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))

	modules, err := listModules(handle)
	if err != nil {
		p.log.Warn("Failed to list modules: ", err)
	}
	p.modules = modules

	p.log.Infoln("Process opened,", len(modules), "modules")
	return nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return process.ErrProcessNotOpen
	}

	err := windows.CloseHandle(p.handle)
	p.handle = 0
	p.pid = 0
	p.modules = nil

	p.log.Infoln("Process closed")
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *WindowsProcess) openHandle() (windows.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return 0, process.ErrProcessNotOpen
	}
	return p.handle, nil
}

// QueryRegion wraps VirtualQueryEx
func (p *WindowsProcess) QueryRegion(addr uint64) (memory_map.MemoryRegion, error) {
	handle, err := p.openHandle()
	if err != nil {
		return memory_map.MemoryRegion{}, err
	}

	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQueryEx(handle, uintptr(addr), &mbi, unsafe.Sizeof(mbi)); err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			// past the highest user-mode address
			return memory_map.MemoryRegion{}, memory_map.ErrEndOfAddressSpace
		}
		return memory_map.MemoryRegion{}, p.translateError("VirtualQueryEx", err)
	}

	region := memory_map.MemoryRegion{
		Address:   uint64(mbi.BaseAddress),
		Size:      uint(mbi.RegionSize),
		Perms:     memory_map.PermsFromProtect(mbi.Protect),
		Committed: mbi.State == windows.MEM_COMMIT,
	}
	if mbi.Type == memImage {
		region.Path = p.moduleName(region.Address)
	}
	return region, nil
}

func (p *WindowsProcess) moduleName(addr uint64) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.modules {
		if addr >= m.base && addr < m.base+m.size {
			return m.name
		}
	}
	return ""
}

func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	handle, err := p.openHandle()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	if err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead); err != nil {
		return nil, p.translateError(fmt.Sprintf("ReadProcessMemory(%s)", addr), err)
	}

	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("read incomplete at %s: expected %d, got %d", addr, size, bytesRead)
	}

	return buf, nil
}

func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	handle, err := p.openHandle()
	if err != nil {
		return err
	}

	var written uintptr
	if err := windows.WriteProcessMemory(handle, uintptr(addr), &data[0], uintptr(len(data)), &written); err != nil {
		if errors.Is(err, windows.ERROR_NOACCESS) {
			return fmt.Errorf("%s: %w: %w", addr, process.ErrNotWritable, err)
		}
		return p.translateError(fmt.Sprintf("WriteProcessMemory(%s)", addr), err)
	}

	if written != uintptr(len(data)) {
		return fmt.Errorf("only wrote %d of %d bytes at %s", written, len(data), addr)
	}
	return nil
}

// Unprotect wraps VirtualProtectEx, keeping the execute bit of the original protection
func (p *WindowsProcess) Unprotect(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) (func() error, error) {
	handle, err := p.openHandle()
	if err != nil {
		return nil, err
	}

	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQueryEx(handle, uintptr(addr), &mbi, unsafe.Sizeof(mbi)); err != nil {
		return nil, p.translateError("VirtualQueryEx", err)
	}

	if memory_map.IsWritablePerms(memory_map.PermsFromProtect(mbi.Protect)) {
		return func() error { return nil }, nil
	}

	var old uint32
	if err := windows.VirtualProtectEx(handle, uintptr(addr), uintptr(size), memory_map.WritableProtect(mbi.Protect), &old); err != nil {
		return nil, p.translateError(fmt.Sprintf("VirtualProtectEx(%s)", addr), err)
	}

	return func() error {
		var dummy uint32
		if err := windows.VirtualProtectEx(handle, uintptr(addr), uintptr(size), old, &dummy); err != nil {
			return p.translateError(fmt.Sprintf("VirtualProtectEx(%s) restore", addr), err)
		}
		return nil
	}, nil
}

// translateError tells a dead target apart from an ordinary API failure
func (p *WindowsProcess) translateError(op string, err error) error {
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		return fmt.Errorf("%s: %w: %w", op, process.ErrAccessDenied, err)
	}
	if p.exited() {
		return fmt.Errorf("%s: %w: %w", op, process.ErrProcessExited, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (p *WindowsProcess) exited() bool {
	handle, err := p.openHandle()
	if err != nil {
		return false
	}
	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err != nil {
		return false
	}
	return code != stillActive
}

func listModules(handle windows.Handle) ([]module, error) {
	var modules [1024]windows.Handle
	var needed uint32
	if err := windows.EnumProcessModules(handle, &modules[0], uint32(unsafe.Sizeof(modules[0]))*uint32(len(modules)), &needed); err != nil {
		return nil, err
	}
	count := needed / uint32(unsafe.Sizeof(modules[0]))
	if count > uint32(len(modules)) {
		count = uint32(len(modules))
	}

	var out []module
	for i := uint32(0); i < count; i++ {
		var mi windows.ModuleInfo
		if err := windows.GetModuleInformation(handle, modules[i], &mi, uint32(unsafe.Sizeof(mi))); err != nil {
			continue
		}

		var name [windows.MAX_PATH]uint16
		if err := windows.GetModuleFileNameEx(handle, modules[i], &name[0], windows.MAX_PATH); err != nil {
			continue
		}

		out = append(out, module{
			name: strings.TrimSpace(windows.UTF16ToString(name[:])),
			base: uint64(mi.BaseOfDll),
			size: uint64(mi.SizeOfImage),
		})
	}
	return out, nil
}
