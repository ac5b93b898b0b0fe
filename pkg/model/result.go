package model

type Bus string

const (
	BusSystem  Bus = "system"
	BusSession Bus = "session"
)

// Result is the outcome of one discovery run. Interrupted is set when the
// run was cancelled and Services holds only what completed before that.
type Result struct {
	Bus         Bus
	Services    []*ServiceEntry
	Interrupted bool
}
