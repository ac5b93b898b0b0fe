// Package filter narrows a discovery result down to the services, object
// paths and interfaces selected by a model.FilterCriteria.
//
// A service survives when it passes, in order: the unique-name gate, the
// service-name pattern, the process command-line pattern, and the tree
// filter. The tree filter keeps a service when at least one of its nodes
// self-matches: its path matches the object pattern and it implements an
// interface matching the interface pattern (an absent pattern matches
// anything). Without Verbose, surviving trees are pruned to the matching
// nodes and the ancestors leading to them; with Verbose they are kept
// whole.
//
// Failed services are kept once they pass the first three gates, so the
// caller can report them. Services that are not running have no tree and
// are kept only when no object or interface pattern is set.
package filter

import (
	"github.com/dbus-txt/dbus-txt/internal/match"
	"github.com/dbus-txt/dbus-txt/pkg/model"
)

// Engine applies one set of criteria. It holds no per-run state and may
// be reused.
type Engine struct {
	criteria model.FilterCriteria

	service   *match.Pattern
	object    *match.Pattern
	iface     *match.Pattern
	process   *match.Pattern
	treeScope bool
}

func New(criteria model.FilterCriteria) *Engine {
	return &Engine{
		criteria:  criteria,
		service:   match.Compile(criteria.ServicePattern),
		object:    match.Compile(criteria.ObjectPattern),
		iface:     match.Compile(criteria.InterfacePattern),
		process:   match.Compile(criteria.ProcessPattern),
		treeScope: criteria.HasTreeFilter(),
	}
}

// Apply runs criteria over entries. See Engine.Apply.
func Apply(entries []*model.ServiceEntry, criteria model.FilterCriteria) []*model.ServiceEntry {
	return New(criteria).Apply(entries)
}

// Apply returns the surviving services in input order. The returned
// entries carry fresh trees; the input is not modified.
func (e *Engine) Apply(entries []*model.ServiceEntry) []*model.ServiceEntry {
	out := make([]*model.ServiceEntry, 0, len(entries))
	for _, entry := range entries {
		if kept, ok := e.Keep(entry); ok {
			out = append(out, kept)
		}
	}
	return out
}

// Keep filters a single service.
func (e *Engine) Keep(entry *model.ServiceEntry) (*model.ServiceEntry, bool) {
	if entry == nil || !e.Admits(entry.Bus) {
		return nil, false
	}
	if e.NeedsProcess() {
		cmdline := entry.Process().Cmdline
		if cmdline == "" || !e.process.Match(cmdline) {
			return nil, false
		}
	}

	if entry.Root == nil {
		// A failed service is reported whatever the tree filter says; an
		// idle activatable one has no tree to match.
		if e.treeScope && entry.Err == nil {
			return nil, false
		}
		return entry.WithRoot(nil), true
	}
	if !e.treeScope {
		return entry.WithRoot(entry.Root.Clone()), true
	}

	var root *model.ObjectNode
	if e.criteria.Verbose {
		root = e.mark(entry.Root)
	} else {
		root = e.prune(entry.Root)
	}
	if root == nil {
		return nil, false
	}
	return entry.WithRoot(root), true
}

// Admits applies the gates that need nothing but the name: the
// unique-name gate and the service pattern. Callers use it to avoid
// introspecting services that cannot survive.
func (e *Engine) Admits(name model.BusName) bool {
	if !e.criteria.IncludeUnique && name.IsUnique() {
		return false
	}
	return e.service.Match(name.Name)
}

// NeedsProcess reports whether filtering depends on process information.
func (e *Engine) NeedsProcess() bool {
	return e.criteria.ProcessPattern != ""
}

// SelfMatches reports whether n satisfies the object and interface
// patterns on its own, ignoring descendants.
func (e *Engine) SelfMatches(n *model.ObjectNode) bool {
	if !e.object.Match(n.Path) {
		return false
	}
	if e.iface.MatchesAll() {
		return true
	}
	for _, name := range n.Interfaces {
		if e.iface.Match(name) {
			return true
		}
	}
	return false
}

// prune copies the parts of the subtree at n that self-match or lead to a
// self-matching node. It returns nil when nothing below n matches.
func (e *Engine) prune(n *model.ObjectNode) *model.ObjectNode {
	var children []*model.ObjectNode
	for _, c := range n.Children {
		if kept := e.prune(c); kept != nil {
			children = append(children, kept)
		}
	}

	self := e.SelfMatches(n)
	if !self && len(children) == 0 {
		return nil
	}

	out := &model.ObjectNode{Path: n.Path, Children: children, Matched: self}
	if self {
		out.Interfaces = e.interfaces(n.Interfaces)
	}
	return out
}

func (e *Engine) interfaces(names []string) []string {
	if e.iface.MatchesAll() {
		return append([]string(nil), names...)
	}
	var out []string
	for _, name := range names {
		if e.iface.Match(name) {
			out = append(out, name)
		}
	}
	return out
}

// mark copies the whole subtree at n, flagging self-matching nodes. It
// returns nil when no node in the subtree self-matches.
func (e *Engine) mark(n *model.ObjectNode) *model.ObjectNode {
	out := n.Clone()
	found := false
	out.Walk(func(node *model.ObjectNode) {
		node.Matched = e.SelfMatches(node)
		found = found || node.Matched
	})
	if !found {
		return nil
	}
	return out
}
