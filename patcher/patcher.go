// Package patcher scans a process for a byte pattern and overwrites every
// occurrence with a replacement of the same length.
package patcher

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"verpatch/process"
	"verpatch/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// PatchHook is called after each verified patch
type PatchHook func(proc process.Process, addr process.ProcessMemoryAddress)

// Engine runs one patch operation at a time. It is not safe for concurrent use.
type Engine struct {
	log    *logger.Logger
	module string
	hook   PatchHook
	state  State
}

// Option is a function that configures an Engine
type Option func(*Engine)

// WithModule restricts the scan to regions backed by the named module or file
func WithModule(name string) Option {
	return func(e *Engine) {
		e.module = name
	}
}

// WithPatchHook calls hook after every verified patch
func WithPatchHook(hook PatchHook) Option {
	return func(e *Engine) {
		e.hook = hook
	}
}

// WithLogger replaces the engine's default logger
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an Engine
func New(options ...Option) *Engine {
	e := &Engine{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorOrange, coloransi.ColorPurple, "patcher")),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// State returns the state of the current or last operation
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) transition(to State) {
	if e.state != to {
		e.log.Debugln("State", e.state, "->", to)
	}
	e.state = to
}

// abort ends the operation early, keeping whatever was accumulated
func (e *Engine) abort(report *Report, err error) (*Report, error) {
	e.transition(Aborted)
	report.Outcome = Aborted
	e.log.Warn("Patch aborted: ", err)
	return report, err
}

// Patch replaces every occurrence of source in proc with replacement.
// Regions are walked once in ascending address order; each region is read,
// searched, and its matches written before the next region is read.
//
// The returned error is nil only for Done. NotFound returns ErrPatternNotFound,
// PartialFailure returns ErrPartialFailure, and Aborted returns the cause.
func (e *Engine) Patch(proc process.Process, source, replacement []byte) (*Report, error) {
	report := &Report{Outcome: Idle}
	e.state = Idle

	if len(source) == 0 || len(source) != len(replacement) {
		return e.abort(report, fmt.Errorf("%w: source is %d bytes, replacement is %d bytes",
			ErrInvalidPatternLength, len(source), len(replacement)))
	}

	e.transition(Scanning)
	e.log.Infoln("Scanning process", proc.GetPID(), "for", fmt.Sprintf("%x", source))

	for region, err := range memory_map.Regions(proc) {
		if err != nil {
			return e.abort(report, fmt.Errorf("region enumeration: %w", err))
		}

		if !region.IsScannable() || !e.wantRegion(region) {
			continue
		}

		data, err := proc.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			if errors.Is(err, process.ErrProcessExited) {
				return e.abort(report, err)
			}
			// regions can vanish between the query and the read
			report.RegionsSkipped++
			e.log.Debugln("Skipping region", fmt.Sprintf("%x", region.Address), fmt.Errorf("%w: %w", ErrRegionReadFailed, err))
			continue
		}
		report.RegionsScanned++

		offsets := findPatternMatches(data, source)
		if len(offsets) == 0 {
			continue
		}

		e.transition(Found)
		report.Matches += len(offsets)

		e.transition(Patching)
		for _, offset := range offsets {
			addr := process.ProcessMemoryAddress(region.Address + uint64(offset))
			if err := e.patchOne(proc, region, addr, source, replacement, report); err != nil {
				return e.abort(report, err)
			}
		}
		e.transition(Scanning)
	}

	switch {
	case report.Matches == 0:
		e.transition(NotFound)
		report.Outcome = NotFound
		e.log.Warn("Pattern not found in ", report.RegionsScanned, " regions")
		return report, ErrPatternNotFound
	case len(report.Failures) > 0:
		e.transition(PartialFailure)
		report.Outcome = PartialFailure
		e.log.Warn("Patched ", report.Patched, " of ", report.Matches, " matches")
		return report, fmt.Errorf("%w: %d of %d", ErrPartialFailure, len(report.Failures), report.Matches)
	}

	e.transition(Done)
	report.Outcome = Done
	e.log.Infoln("Patch complete,", report.Patched, "patched,", report.AlreadyPatched, "already patched")
	return report, nil
}

// patchOne patches a single match. Per-match failures are recorded in report;
// only a fatal error (the process exiting) is returned.
func (e *Engine) patchOne(proc process.Process, region memory_map.MemoryRegion, addr process.ProcessMemoryAddress, source, replacement []byte, report *Report) error {
	size := process.ProcessMemorySize(len(source))

	fail := func(err error) error {
		if errors.Is(err, process.ErrProcessExited) {
			return err
		}
		report.Failures = append(report.Failures, Failure{Address: addr, Err: err})
		e.log.Warn("Failed to patch ", addr, ": ", err)
		return nil
	}

	current, err := proc.ReadMemory(addr, size)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrRegionReadFailed, err))
	}
	if bytes.Equal(current, replacement) {
		report.AlreadyPatched++
		return nil
	}
	if !bytes.Equal(current, source) {
		return fail(fmt.Errorf("%w: found %x", ErrMatchChanged, current))
	}

	var restore func() error
	if !region.IsWritable() {
		restore, err = proc.Unprotect(addr, size)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", ErrProtectionElevationFailed, err))
		}
	}

	err = proc.WriteMemory(addr, replacement)

	if restore != nil {
		if rerr := restore(); rerr != nil {
			e.log.Warn("Failed to restore protection at ", addr, ": ", rerr)
		}
	}

	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrWriteFailed, err))
	}

	written, err := proc.ReadMemory(addr, size)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrPatchVerificationFailed, err))
	}
	if !bytes.Equal(written, replacement) {
		return fail(fmt.Errorf("%w: read back %x", ErrPatchVerificationFailed, written))
	}

	report.Patched++
	if e.hook != nil {
		e.hook(proc, addr)
	}
	return nil
}

func (e *Engine) wantRegion(region memory_map.MemoryRegion) bool {
	if e.module == "" {
		return true
	}
	return strings.EqualFold(baseName(region.Path), e.module)
}

// baseName strips directories from both Windows and Unix style paths
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// findPatternMatches finds all non-overlapping occurrences of pattern in data
// and returns their offsets
func findPatternMatches(data, pattern []byte) []int {
	var matches []int
	for offset := 0; offset+len(pattern) <= len(data); {
		i := bytes.Index(data[offset:], pattern)
		if i < 0 {
			break
		}
		matches = append(matches, offset+i)
		offset += i + len(pattern)
	}
	return matches
}
