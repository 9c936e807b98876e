package patcher

import (
	"errors"
	"fmt"

	"verpatch/process"
)

var (
	// ErrInvalidPatternLength is returned when the replacement does not have the
	// byte length of the source pattern, or the source is empty. No memory is touched.
	ErrInvalidPatternLength = errors.New("invalid pattern length")

	// ErrPatternNotFound means the pattern occurs nowhere in the scanned memory,
	// which usually means the assumed current version is not what is loaded.
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrPartialFailure is returned when at least one match could not be patched
	ErrPartialFailure = errors.New("some matches were not patched")

	// ErrRegionReadFailed marks a region that could not be read and was skipped
	ErrRegionReadFailed = errors.New("region read failed")

	// ErrProtectionElevationFailed marks a match in memory that could not be made writable
	ErrProtectionElevationFailed = errors.New("protection elevation failed")

	// ErrWriteFailed marks a match whose write was rejected
	ErrWriteFailed = errors.New("write failed")

	// ErrPatchVerificationFailed marks a match that did not read back as the replacement
	ErrPatchVerificationFailed = errors.New("patch verification failed")

	// ErrMatchChanged marks a match that no longer held the source pattern when it was about to be written
	ErrMatchChanged = errors.New("match changed before write")
)

// State is a step of one patch operation
type State int

const (
	Idle State = iota
	Scanning
	Found
	Patching
	Done
	PartialFailure
	NotFound
	Aborted
)

var stateNames = [...]string{"idle", "scanning", "found", "patching", "done", "partial-failure", "not-found", "aborted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition can follow s
func (s State) Terminal() bool {
	return s >= Done
}

// Failure is a match that was found but not patched
type Failure struct {
	Address process.ProcessMemoryAddress
	Err     error
}

// Unwritable reports whether the match failed because its memory could not be made writable
func (f Failure) Unwritable() bool {
	return errors.Is(f.Err, ErrProtectionElevationFailed)
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %v", f.Address, f.Err)
}

// Report is the single result of a patch operation
type Report struct {
	Outcome        State
	RegionsScanned int // committed readable regions read in full
	RegionsSkipped int // committed readable regions that could not be read
	Matches        int
	Patched        int
	AlreadyPatched int // matches that already held the replacement when re-read
	Failures       []Failure
}

// Unwritable returns the failures caused by memory that could not be made writable
func (r *Report) Unwritable() []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.Unwritable() {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) String() string {
	return fmt.Sprintf("%s: %d regions scanned, %d skipped, %d matches, %d patched, %d already patched, %d failed",
		r.Outcome, r.RegionsScanned, r.RegionsSkipped, r.Matches, r.Patched, r.AlreadyPatched, len(r.Failures))
}
