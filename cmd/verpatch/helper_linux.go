//go:build linux

package main

import (
	"verpatch/process"
	"verpatch/process_linux"
)

func getHelper() (process.ProcessHelper, error) {
	return process_linux.NewHelper(), nil
}
