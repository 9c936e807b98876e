//go:build windows

package main

import (
	"verpatch/process_windows"
	"verpatch/version"
)

const installKey = `SOFTWARE\Tencent\WeChat`

func lookupInstall() (*installInfo, error) {
	info, err := process_windows.LookupInstall(installKey)
	if err != nil {
		return nil, err
	}
	current, err := version.FromPacked(info.Version)
	if err != nil {
		return nil, err
	}
	return &installInfo{Current: current, Path: info.InstallPath}, nil
}
