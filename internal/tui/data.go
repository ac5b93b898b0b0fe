package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wrap"

	"github.com/dbus-txt/dbus-txt/internal/filter"
	"github.com/dbus-txt/dbus-txt/internal/output"
	"github.com/dbus-txt/dbus-txt/pkg/model"
)

type servicesMsg struct {
	services    []*model.ServiceEntry
	interrupted bool
}

type errMsg struct{ err error }

func (m MainModel) refreshServices() tea.Cmd {
	ctx, collect, unique := m.ctx, m.collect, m.criteria.IncludeUnique
	return func() tea.Msg {
		services, interrupted, err := collect(ctx, unique)
		if err != nil {
			return errMsg{err}
		}
		return servicesMsg{services: services, interrupted: interrupted}
	}
}

func (m *MainModel) sortServices() {
	sort.SliceStable(m.services, func(i, j int) bool {
		a, b := m.services[i], m.services[j]
		var less bool
		switch m.sortCol {
		case "pid":
			less = a.Process().PID < b.Process().PID
		case "objects":
			less = a.Root.Count() < b.Root.Count()
		case "command":
			less = strings.ToLower(a.Process().Command) < strings.ToLower(b.Process().Command)
		default:
			less = a.Bus.Name < b.Bus.Name
		}
		if m.sortDesc {
			return !less
		}
		return less
	})
}

// activeCriteria is the startup criteria with the search box as the
// service pattern.
func (m *MainModel) activeCriteria() model.FilterCriteria {
	c := m.criteria
	c.ServicePattern = strings.TrimSpace(m.input.Value())
	return c
}

func (m *MainModel) filterServices() {
	m.filtered = filter.New(m.activeCriteria()).Apply(m.services)

	rows := make([]table.Row, 0, len(m.filtered))
	for _, s := range m.filtered {
		rows = append(rows, serviceRow(s))
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func serviceRow(s *model.ServiceEntry) table.Row {
	pid, command := "", ""
	if p := s.Process(); p.Resolved() {
		pid = strconv.Itoa(p.PID)
		command = output.Sanitize(p.Cmdline)
	}

	objects := "-"
	switch {
	case s.Failed():
		objects = "error"
	case !s.Running:
		objects = "idle"
	case s.Root != nil:
		objects = strconv.Itoa(s.Root.Count())
	}
	return table.Row{output.Sanitize(s.Bus.Name), pid, objects, command}
}

func serviceColumns() []table.Column {
	return []table.Column{
		{Title: "Service", Width: 40},
		{Title: "PID", Width: 8},
		{Title: "Objects", Width: 8},
		{Title: "Command", Width: 40},
	}
}

func (m *MainModel) getColumns() []table.Column {
	cols := serviceColumns()
	addArrow := func(idx int, key string) {
		if m.sortCol == key {
			if m.sortDesc {
				cols[idx].Title += " ↓"
			} else {
				cols[idx].Title += " ↑"
			}
		}
	}
	addArrow(0, "name")
	addArrow(1, "pid")
	addArrow(2, "objects")
	addArrow(3, "command")
	return cols
}

func (m *MainModel) selectedService() *model.ServiceEntry {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.filtered) {
		return nil
	}
	return m.filtered[i]
}

func (m *MainModel) updateTreeViewport() {
	s := m.selectedService()
	if s == nil {
		m.treeViewport.SetContent(dimStyle.Render("No service selected"))
		return
	}

	content := output.TreeString(s)
	if m.treeViewport.Width > 0 {
		content = wrap.String(content, m.treeViewport.Width)
	}
	m.treeViewport.SetContent(content)
	m.treeViewport.GotoTop()
}

func (m *MainModel) updateDetailViewport() {
	if m.selected == nil {
		return
	}
	s := m.selected
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Service:"), output.Sanitize(s.Bus.Name))
	kind := "well-known"
	if s.Bus.IsUnique() {
		kind = "unique"
	}
	if s.Bus.Activatable {
		kind += ", activatable"
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Kind:"), kind)

	if p := s.Process(); p.Resolved() {
		fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("PID:"), p.PID)
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Command:"), output.Sanitize(p.Cmdline))
	} else if s.Running {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Process:"), dimStyle.Render("unknown"))
	}
	if s.Root != nil {
		fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Objects:"), s.Root.Count())
	}

	fmt.Fprintf(&b, "\n%s\n", labelStyle.Render("Object Tree:"))
	b.WriteString(output.TreeString(s))

	content := b.String()
	if m.viewport.Width > 0 {
		content = wrap.String(content, m.viewport.Width)
	}
	m.viewport.SetContent(content)
}
