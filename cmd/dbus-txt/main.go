//go:build linux || darwin || freebsd

package main

import (
	"github.com/dbus-txt/dbus-txt/internal/app"
)

var (
	version   = ""
	commit    = ""
	buildDate = ""
)

// go build -ldflags "-X main.version=v0.1.0 -X main.commit=$(git rev-parse --short HEAD) -X 'main.buildDate=$(date +%Y-%m-%d)'" -o dbus-txt ./cmd/dbus-txt

func main() {
	app.SetVersionBuildCommitString(version, commit, buildDate)
	app.Execute()
}
