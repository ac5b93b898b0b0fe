package model

import "strings"

// ObjectNode is one object path in a service's tree. Children keep the
// order in which introspection reported them.
type ObjectNode struct {
	Path       string        `json:"path"`
	Interfaces []string      `json:"interfaces,omitempty"`
	Children   []*ObjectNode `json:"children,omitempty"`

	// Matched is set on nodes that satisfied an object or interface filter.
	Matched bool `json:"matched,omitempty"`
}

// ChildPath joins a parent object path and a child segment.
func ChildPath(parent, segment string) string {
	if parent == "/" || parent == "" {
		return "/" + segment
	}
	return parent + "/" + segment
}

// Segment returns the last element of the node's path, or "/" for the root.
func (n *ObjectNode) Segment() string {
	if n.Path == "/" {
		return "/"
	}
	return n.Path[strings.LastIndex(n.Path, "/")+1:]
}

// Walk visits n and its descendants depth-first in child order.
func (n *ObjectNode) Walk(fn func(*ObjectNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *ObjectNode) Count() int {
	count := 0
	n.Walk(func(*ObjectNode) { count++ })
	return count
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *ObjectNode) Clone() *ObjectNode {
	if n == nil {
		return nil
	}
	out := &ObjectNode{
		Path:    n.Path,
		Matched: n.Matched,
	}
	if n.Interfaces != nil {
		out.Interfaces = append([]string(nil), n.Interfaces...)
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}
