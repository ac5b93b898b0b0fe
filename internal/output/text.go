package output

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/muesli/reflow/truncate"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

const NoMatchMessage = "No D-Bus services found with the specified filters"

var (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorDim     = "\033[2m"
)

type Options struct {
	Color bool

	// Width truncates command lines to fit; zero leaves them whole.
	Width int

	// Group prints names owned by the same process together.
	Group bool
}

type palette struct {
	reset, red, green, yellow, magenta, cyan, dim string
}

func (o Options) palette() palette {
	if !o.Color {
		return palette{}
	}
	return palette{colorReset, colorRed, colorGreen, colorYellow, colorMagenta, colorCyan, colorDim}
}

// Group is a set of services owned by one process that report the same
// tree, printed together.
type Group struct {
	Services []*model.ServiceEntry
}

// Primary is the member whose tree is printed for the group.
func (g Group) Primary() *model.ServiceEntry {
	return g.Services[0]
}

// GroupByProcess collects services sharing an owning PID and an identical
// report (tree, error and running state). Aliases of one connection end up
// together; a second connection of the same process with a different tree
// gets its own group. Services without a known process stay on their own.
// Groups are ordered by the position of their first member.
func GroupByProcess(services []*model.ServiceEntry) []Group {
	var groups []Group
	byPID := make(map[int][]int)
	for _, s := range services {
		pid := s.Process().PID
		if pid > 0 && joinGroup(groups, byPID[pid], s) {
			continue
		}
		if pid > 0 {
			byPID[pid] = append(byPID[pid], len(groups))
		}
		groups = append(groups, Group{Services: []*model.ServiceEntry{s}})
	}
	return groups
}

func joinGroup(groups []Group, candidates []int, s *model.ServiceEntry) bool {
	for _, i := range candidates {
		if sameReport(groups[i].Primary(), s) {
			groups[i].Services = append(groups[i].Services, s)
			return true
		}
	}
	return false
}

func sameReport(a, b *model.ServiceEntry) bool {
	if a.Running != b.Running || (a.Err == nil) != (b.Err == nil) {
		return false
	}
	if a.Err != nil && a.Err.Error() != b.Err.Error() {
		return false
	}
	return reflect.DeepEqual(a.Root, b.Root)
}

// RenderText prints the result the way the classic dbus-txt listing looks:
// service names, the owning command line, then every reported object path
// followed by its interfaces.
func RenderText(w io.Writer, r model.Result, opts Options) {
	if len(r.Services) == 0 {
		fmt.Fprintln(w, NoMatchMessage)
		return
	}

	groups := make([]Group, 0, len(r.Services))
	if opts.Group {
		groups = GroupByProcess(r.Services)
	} else {
		for _, s := range r.Services {
			groups = append(groups, Group{Services: []*model.ServiceEntry{s}})
		}
	}

	c := opts.palette()
	for _, g := range groups {
		for _, s := range g.Services {
			fmt.Fprintf(w, "%s%s%s\n", c.green, Sanitize(s.Bus.Name), c.reset)
		}
		primary := g.Primary()
		fmt.Fprintf(w, "  %sCmd line:%s %s\n", c.dim, c.reset, processLine(primary, opts))

		switch {
		case primary.Err != nil:
			fmt.Fprintf(w, "  %sError: %s%s\n", c.red, Sanitize(primary.Err.Error()), c.reset)
		case !primary.Running:
			fmt.Fprintf(w, "  %sNot running (activatable)%s\n", c.yellow, c.reset)
		default:
			primary.Root.Walk(func(n *model.ObjectNode) {
				if len(n.Interfaces) == 0 && !n.Matched {
					return
				}
				fmt.Fprintf(w, "  %s%s%s\n", c.cyan, Sanitize(n.Path), c.reset)
				for _, iface := range n.Interfaces {
					fmt.Fprintf(w, "    %s\n", Sanitize(iface))
				}
			})
		}
		fmt.Fprintln(w)
	}
}

func processLine(s *model.ServiceEntry, opts Options) string {
	p := s.Process()
	if !p.Resolved() {
		return "Unknown (Pid: Not running)"
	}
	cmdline := p.Cmdline
	if cmdline == "" {
		cmdline = p.Command
	}
	if cmdline == "" {
		cmdline = "Unknown"
	}
	cmdline = Sanitize(cmdline)
	if opts.Width > 0 {
		// Leave room for the indent, label and pid suffix.
		room := opts.Width - len("  Cmd line:  (Pid: )") - len(fmt.Sprint(p.PID))
		if room > 8 && len(cmdline) > room {
			cmdline = truncate.StringWithTail(cmdline, uint(room), "…")
		}
	}
	return fmt.Sprintf("%s (Pid: %d)", cmdline, p.PID)
}

// RenderShort prints one line per service.
func RenderShort(w io.Writer, r model.Result, opts Options) {
	c := opts.palette()
	for _, s := range r.Services {
		line := c.green + Sanitize(s.Bus.Name) + c.reset
		p := s.Process()
		switch {
		case s.Err != nil:
			line += " " + c.red + "(error)" + c.reset
		case p.Resolved():
			line += fmt.Sprintf("%s → %s%s (%spid %d%s)", c.magenta, c.reset, Sanitize(p.Command), c.dim, p.PID, c.reset)
		case !s.Running:
			line += " " + c.yellow + "(not running)" + c.reset
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
