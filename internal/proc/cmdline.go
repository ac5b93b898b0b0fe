// Package proc looks up the process behind a bus connection's PID.
package proc

import (
	"fmt"
	"strings"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

// ReadProcess returns what is known about pid. Fields that cannot be read
// (the process exited, or belongs to another user) are left empty.
func ReadProcess(pid int) (model.ProcessInfo, error) {
	if pid <= 0 {
		return model.ProcessInfo{}, fmt.Errorf("invalid pid %d", pid)
	}
	info := model.ProcessInfo{PID: pid}

	cmdline, err := readCmdline(pid)
	if err != nil {
		return info, fmt.Errorf("process %d: %w", pid, err)
	}
	info.Cmdline = cmdline
	info.Command = readComm(pid)
	if info.Command == "" {
		info.Command = commandFromCmdline(cmdline)
	}
	return info, nil
}

// joinArgs turns a NUL-separated argv block into a single line.
func joinArgs(raw []byte) string {
	return strings.TrimSpace(strings.ReplaceAll(string(raw), "\x00", " "))
}

func commandFromCmdline(cmdline string) string {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return ""
	}
	arg0 := fields[0]
	if i := strings.LastIndex(arg0, "/"); i >= 0 {
		arg0 = arg0[i+1:]
	}
	return arg0
}
