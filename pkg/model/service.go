package model

import "sync"

// ServiceEntry is the per-name unit of a discovery run. Root is nil when
// the service was not introspected or introspection failed; Err tells the
// two apart.
type ServiceEntry struct {
	Bus     BusName
	Root    *ObjectNode
	Err     error
	Running bool

	proc *processMemo
}

type processMemo struct {
	once   sync.Once
	lookup func() ProcessInfo
	info   ProcessInfo
}

// NewServiceEntry returns an entry whose process information is fetched on
// first use by lookup. A nil lookup yields an empty ProcessInfo.
func NewServiceEntry(name BusName, lookup func() ProcessInfo) *ServiceEntry {
	return &ServiceEntry{
		Bus:     name,
		Running: !name.Activatable,
		proc:    &processMemo{lookup: lookup},
	}
}

// Process returns the owning process, resolving it at most once. Copies
// made with WithRoot share the memoised value.
func (s *ServiceEntry) Process() ProcessInfo {
	if s.proc == nil {
		return ProcessInfo{}
	}
	s.proc.once.Do(func() {
		if s.proc.lookup != nil {
			s.proc.info = s.proc.lookup()
		}
	})
	return s.proc.info
}

// WithRoot returns a shallow copy of s carrying a different tree.
func (s *ServiceEntry) WithRoot(root *ObjectNode) *ServiceEntry {
	out := *s
	out.Root = root
	return &out
}

func (s *ServiceEntry) Failed() bool {
	return s.Err != nil
}
