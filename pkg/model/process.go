package model

// ProcessInfo describes the process owning a bus connection. PID is zero
// and Cmdline empty when the owner could not be resolved.
type ProcessInfo struct {
	PID     int    `json:"pid,omitempty"`
	Command string `json:"command,omitempty"`
	Cmdline string `json:"cmdline,omitempty"`
}

func (p ProcessInfo) Resolved() bool {
	return p.PID > 0
}
