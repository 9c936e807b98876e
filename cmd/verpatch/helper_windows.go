//go:build windows

package main

import (
	"verpatch/process"
	"verpatch/process_windows"
)

func getHelper() (process.ProcessHelper, error) {
	return process_windows.NewHelper(), nil
}
