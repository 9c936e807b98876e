//go:build !windows

package main

import "errors"

func lookupInstall() (*installInfo, error) {
	return nil, errors.New("no install registry on this platform")
}
