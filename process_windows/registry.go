//go:build windows

package process_windows

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// InstallInfo is what an installer leaves under its HKCU key
type InstallInfo struct {
	Version     uint32 // packed version DWORD
	InstallPath string
}

// LookupInstall reads the Version and InstallPath values of HKEY_CURRENT_USER\<keyPath>.
// InstallPath is optional.
func LookupInstall(keyPath string) (*InstallInfo, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, keyPath, registry.QUERY_VALUE)
	if err != nil {
		return nil, fmt.Errorf("open HKCU\\%s: %w", keyPath, err)
	}
	defer key.Close()

	version, _, err := key.GetIntegerValue("Version")
	if err != nil {
		return nil, fmt.Errorf("read HKCU\\%s\\Version: %w", keyPath, err)
	}

	info := &InstallInfo{Version: uint32(version)}
	if path, _, err := key.GetStringValue("InstallPath"); err == nil {
		info.InstallPath = path
	}
	return info, nil
}
