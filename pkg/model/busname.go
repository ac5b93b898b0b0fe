package model

import "strings"

type NameKind string

const (
	NameWellKnown NameKind = "well-known"
	NameUnique    NameKind = "unique"
)

// BusName identifies a service on a bus. Activatable is set for names the
// bus daemon can start on demand but which had no owner when listed.
type BusName struct {
	Name        string
	Kind        NameKind
	Activatable bool
}

// KindOf classifies a bus name. Unique names are assigned by the daemon
// and always start with a colon.
func KindOf(name string) NameKind {
	if strings.HasPrefix(name, ":") {
		return NameUnique
	}
	return NameWellKnown
}

func NewBusName(name string) BusName {
	return BusName{Name: name, Kind: KindOf(name)}
}

func (b BusName) IsUnique() bool {
	return b.Kind == NameUnique
}

func (b BusName) String() string {
	return b.Name
}
