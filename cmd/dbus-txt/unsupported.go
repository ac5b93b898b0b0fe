//go:build !linux && !darwin && !freebsd

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(
		os.Stderr,
		"dbus-txt is only supported on Linux, macOS, and FreeBSD.\n\nIt needs a D-Bus daemon and a Unix process table to report on.",
	)
	os.Exit(1)
}
