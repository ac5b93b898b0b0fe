package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

// PrintTree renders each service's object hierarchy with box-drawing
// connectors. Interfaces are listed under the object implementing them.
func PrintTree(w io.Writer, r model.Result, opts Options) {
	if len(r.Services) == 0 {
		fmt.Fprintln(w, NoMatchMessage)
		return
	}
	for _, s := range r.Services {
		RenderServiceTree(w, s, opts)
		fmt.Fprintln(w)
	}
}

// RenderServiceTree prints a single service heading and its tree.
func RenderServiceTree(w io.Writer, s *model.ServiceEntry, opts Options) {
	c := opts.palette()

	heading := c.green + Sanitize(s.Bus.Name) + c.reset
	if p := s.Process(); p.Resolved() {
		heading += fmt.Sprintf(" (%spid %d%s, %s)", c.dim, p.PID, c.reset, Sanitize(p.Command))
	}
	fmt.Fprintln(w, heading)

	switch {
	case s.Err != nil:
		fmt.Fprintf(w, "%s└─ %s%serror: %s%s\n", c.magenta, c.reset, c.red, Sanitize(s.Err.Error()), c.reset)
		return
	case s.Root == nil:
		fmt.Fprintf(w, "%s└─ %s%snot running%s\n", c.magenta, c.reset, c.yellow, c.reset)
		return
	}
	printNode(w, s.Root, "", true, c)
}

func printNode(w io.Writer, n *model.ObjectNode, prefix string, last bool, c palette) {
	connector := "├─ "
	childPrefix := prefix + "│  "
	if last {
		connector = "└─ "
		childPrefix = prefix + "   "
	}

	label := Sanitize(n.Segment())
	if n.Matched {
		label = c.green + label + c.reset
	}
	fmt.Fprintf(w, "%s%s%s%s%s\n", prefix, c.magenta, connector, c.reset, label)

	items := len(n.Interfaces) + len(n.Children)
	for i, iface := range n.Interfaces {
		branch := "├─ "
		if i == items-1 {
			branch = "└─ "
		}
		fmt.Fprintf(w, "%s%s%s%s%s%s%s\n", childPrefix, c.magenta, branch, c.reset, c.cyan, Sanitize(iface), c.reset)
	}
	for i, child := range n.Children {
		printNode(w, child, childPrefix, i == len(n.Children)-1, c)
	}
}

// TreeString renders a service tree without colour, for embedding in
// other views.
func TreeString(s *model.ServiceEntry) string {
	var b strings.Builder
	RenderServiceTree(&b, s, Options{})
	return b.String()
}
