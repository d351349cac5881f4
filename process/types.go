package process

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo contains basic information about a running process
type ProcessInfo struct {
	PID     ProcessID    // Process ID
	PPID    ProcessID    // Parent Process ID
	Name    string       // Executable name (comm on Linux, exe file on Windows)
	Exe     string       // Path to the executable
	Cmdline []string     // Command line arguments
	State   ProcessState // Process state (R, S, D, Z, etc.)
	Threads int          // Number of threads
}
