package process

// ProcessFinder defines operations for discovering running processes
type ProcessFinder interface {
	// FindProcessByPID finds a process by its PID
	FindProcessByPID(pid ProcessID) (*ProcessInfo, error)

	// FindProcessByName finds processes by executable name. Matching is
	// case-insensitive, as executable names are on the platforms we target.
	FindProcessByName(name string) ([]ProcessInfo, error)

	// FindAllProcesses returns information about all running processes
	FindAllProcesses() ([]ProcessInfo, error)
}

// ProcessOpener attaches to processes. A session uses one to (re)attach by name.
type ProcessOpener interface {
	// OpenProcessByName opens the lowest-PID process with the given executable
	// name. It fails with ErrProcessNotRunning when there is none.
	OpenProcessByName(name string) (Process, error)

	// OpenProcessByPID opens the given process
	OpenProcessByPID(pid ProcessID) (Process, error)
}
