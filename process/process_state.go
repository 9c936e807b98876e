package process

// ProcessState represents the state of a process
type ProcessState string

const (
	ProcessRunning  ProcessState = "R" // Running
	ProcessSleeping ProcessState = "S" // Sleeping in an interruptible wait
	ProcessWaiting  ProcessState = "D" // Waiting in uninterruptible disk sleep
	ProcessZombie   ProcessState = "Z" // Zombie
	ProcessStopped  ProcessState = "T" // Stopped (on a signal)
	ProcessDead     ProcessState = "X" // Dead
)

// HasMemory reports whether a process in this state still owns an address space.
func (s ProcessState) HasMemory() bool {
	return s != ProcessZombie && s != ProcessDead
}
