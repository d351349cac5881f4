package process

// ProcessState represents the scheduler state of a process
type ProcessState string

const (
	ProcessRunning    ProcessState = "R" // Running
	ProcessSleeping   ProcessState = "S" // Sleeping in an interruptible wait
	ProcessWaiting    ProcessState = "D" // Waiting in uninterruptible disk sleep
	ProcessZombie     ProcessState = "Z" // Zombie
	ProcessStopped    ProcessState = "T" // Stopped (on a signal)
	ProcessTracingStp ProcessState = "t" // Tracing stop
	ProcessDead       ProcessState = "X" // Dead
	ProcessUnknown    ProcessState = ""
)

// Exited reports whether a process in this state can no longer be read.
func (s ProcessState) Exited() bool {
	return s == ProcessZombie || s == ProcessDead
}
