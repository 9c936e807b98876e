package patcher

import (
	"fmt"

	"verpatch/process"
	"verpatch/version"
)

// Request describes one version patch of a named process
type Request struct {
	Name     string
	Current  version.Version
	Target   version.Version
	Encoding version.Encoding
}

// Run encodes the request, opens the process, patches it and closes it again.
// An encoding that cannot fit the target fails with ErrInvalidPatternLength
// before any process is looked up.
func Run(opener process.ProcessOpener, req Request, options ...Option) (*Report, error) {
	source, replacement, err := version.EncodePair(req.Current, req.Target, req.Encoding)
	if err != nil {
		return &Report{Outcome: Aborted}, fmt.Errorf("%w: %w", ErrInvalidPatternLength, err)
	}

	var report *Report
	err = process.WithProcess(opener, req.Name, func(proc process.Process) error {
		var perr error
		report, perr = New(options...).Patch(proc, source, replacement)
		return perr
	})

	if report == nil {
		// the process could not be opened
		report = &Report{Outcome: Aborted}
	}
	return report, err
}
