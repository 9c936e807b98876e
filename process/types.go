package process

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo contains basic information about a process
type ProcessInfo struct {
	PID   ProcessID    // Process ID
	PPID  ProcessID    // Parent Process ID
	Name  string       // Executable base name
	Exe   string       // Path to the executable, empty when unavailable
	State ProcessState // Process state, empty when the platform does not report one
}
