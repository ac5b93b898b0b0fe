package model

// FilterCriteria narrows a discovery result. Empty patterns match
// everything.
type FilterCriteria struct {
	ServicePattern   string
	ObjectPattern    string
	InterfacePattern string
	ProcessPattern   string

	// Verbose keeps whole trees of matching services instead of pruning
	// them down to the matching nodes.
	Verbose bool

	// IncludeUnique also reports connection-assigned (:X.Y) names.
	IncludeUnique bool
}

// HasTreeFilter reports whether an object or interface pattern is set.
func (c FilterCriteria) HasTreeFilter() bool {
	return c.ObjectPattern != "" || c.InterfacePattern != ""
}
