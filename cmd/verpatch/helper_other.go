//go:build !linux && !windows

package main

import (
	"fmt"
	"runtime"

	"verpatch/process"
)

func getHelper() (process.ProcessHelper, error) {
	return nil, fmt.Errorf("process access is not supported on %s", runtime.GOOS)
}
