package app

import "fmt"

var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

func SetVersionBuildCommitString(v, c, d string) {
	if v != "" {
		version = v
	}
	commit = c
	buildDate = d
}

func versionString() string {
	s := version
	if commit != "" {
		s += fmt.Sprintf(" (commit %s", commit)
		if buildDate != "" {
			s += ", built " + buildDate
		}
		s += ")"
	}
	return s
}
