package process

import (
	"os"
	"strconv"
	"time"
)

// ExitStatus is how a child process ended.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process was ended by a signal.
	Code int `json:"code"`

	state *os.ProcessState
}

func exitStatus(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return ExitStatus{Code: -1}
	}
	return ExitStatus{Code: ps.ExitCode(), state: ps}
}

// Success reports whether the process exited with code zero.
func (s ExitStatus) Success() bool {
	return s.Code == 0
}

// ProcessState returns the OS-level state, or nil for a status that was not
// produced by a wait.
func (s ExitStatus) ProcessState() *os.ProcessState {
	return s.state
}

func (s ExitStatus) String() string {
	if s.state != nil {
		return s.state.String()
	}
	return "exit status " + strconv.Itoa(s.Code)
}

// Output holds the result of a completed process whose output was captured.
type Output struct {
	// Status is how the process ended.
	Status ExitStatus
	// Stdout is everything written to standard output while it was piped.
	Stdout []byte
	// Stderr is everything written to standard error while it was piped.
	Stderr []byte
	// Duration is the time from launch to exit.
	Duration time.Duration
}
