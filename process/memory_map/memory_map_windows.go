//go:build windows

package memory_map

import (
	"golang.org/x/sys/windows"
)

// PermsFromProtect translates a PAGE_* protection value into an "rwxp" style string.
// Guard and no-access pages are reported as unreadable.
func PermsFromProtect(protect uint32) string {
	if protect&windows.PAGE_GUARD != 0 || protect&windows.PAGE_NOACCESS != 0 {
		return "---p"
	}

	switch protect & 0xFF {
	case windows.PAGE_READONLY:
		return "r--p"
	case windows.PAGE_READWRITE:
		return "rw-p"
	case windows.PAGE_WRITECOPY:
		return "rw-p"
	case windows.PAGE_EXECUTE:
		return "--xp"
	case windows.PAGE_EXECUTE_READ:
		return "r-xp"
	case windows.PAGE_EXECUTE_READWRITE:
		return "rwxp"
	case windows.PAGE_EXECUTE_WRITECOPY:
		return "rwxp"
	}
	return "---p"
}

// WritableProtect returns the protection that adds write access to protect
// while keeping its execute bit.
func WritableProtect(protect uint32) uint32 {
	if IsExecutablePerms(PermsFromProtect(protect)) {
		return windows.PAGE_EXECUTE_READWRITE
	}
	return windows.PAGE_READWRITE
}
