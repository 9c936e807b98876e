package process

// ProcessHelper bundles the platform finder with the platform process constructor
type ProcessHelper interface {
	// New creates a new, unopened Process instance
	New() Process

	// NewWithPID creates a new Process instance and opens it with the given PID
	NewWithPID(pid ProcessID) (Process, error)

	// Finder returns the platform process finder
	Finder() ProcessFinder

	ProcessOpener
}

// ProcessOpener opens a process by name
type ProcessOpener interface {
	// OpenProcessByName opens the single process whose executable base name equals name.
	// It fails with ErrProcessNotFound or ErrAmbiguousProcess rather than guessing.
	OpenProcessByName(name string) (Process, error)
}
