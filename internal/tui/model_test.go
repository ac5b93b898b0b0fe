package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

func entry(name string, pid int, root *model.ObjectNode) *model.ServiceEntry {
	e := model.NewServiceEntry(model.NewBusName(name), func() model.ProcessInfo {
		return model.ProcessInfo{PID: pid, Command: "daemon", Cmdline: "/usr/bin/daemon --name " + name}
	})
	e.Root = root
	return e
}

func sampleServices() []*model.ServiceEntry {
	return []*model.ServiceEntry{
		entry("org.example.Zeta", 30, &model.ObjectNode{Path: "/", Interfaces: []string{"org.example.Zeta"}}),
		entry("org.example.Alpha", 10, &model.ObjectNode{
			Path: "/",
			Children: []*model.ObjectNode{
				{Path: "/org", Interfaces: []string{"org.example.Alpha"}},
			},
		}),
		entry(":1.7", 20, &model.ObjectNode{Path: "/"}),
	}
}

func newTestModel(t *testing.T, criteria model.FilterCriteria) (MainModel, *[]bool) {
	t.Helper()
	var calls []bool
	collect := func(_ context.Context, unique bool) ([]*model.ServiceEntry, bool, error) {
		calls = append(calls, unique)
		return sampleServices(), false, nil
	}
	m := InitialModel(context.Background(), Options{
		Bus:      model.BusSession,
		Criteria: criteria,
		Collect:  collect,
		Version:  "v0.0.1",
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	return next.(MainModel), &calls
}

func load(t *testing.T, m MainModel) MainModel {
	t.Helper()
	msg := m.refreshServices()()
	next, _ := m.Update(msg)
	return next.(MainModel)
}

func names(m MainModel) []string {
	var out []string
	for _, s := range m.filtered {
		out = append(out, s.Bus.Name)
	}
	return out
}

func press(m MainModel, keys string) MainModel {
	for _, r := range keys {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(MainModel)
	}
	return m
}

func TestServicesSortedAndFiltered(t *testing.T) {
	m, calls := newTestModel(t, model.FilterCriteria{})
	m = load(t, m)

	if got := strings.Join(names(m), ","); got != "org.example.Alpha,org.example.Zeta" {
		t.Errorf("filtered = %s", got)
	}
	if len(*calls) != 1 || (*calls)[0] {
		t.Errorf("collect calls = %v", *calls)
	}
	if m.loading {
		t.Error("still loading after servicesMsg")
	}
	if !strings.Contains(ansi.Strip(m.treeViewport.View()), "org.example.Alpha") {
		t.Error("tree pane does not show the selected service")
	}
}

func TestSearchBoxFiltersByServicePattern(t *testing.T) {
	m, _ := newTestModel(t, model.FilterCriteria{})
	m = load(t, m)

	m = press(m, "/")
	if !m.input.Focused() {
		t.Fatal("search box not focused")
	}
	m = press(m, "*Zeta")
	if got := strings.Join(names(m), ","); got != "org.example.Zeta" {
		t.Errorf("filtered = %s", got)
	}
}

func TestToggleVerboseKeepsWholeTree(t *testing.T) {
	m, _ := newTestModel(t, model.FilterCriteria{InterfacePattern: "org.example.Alpha"})
	m = load(t, m)

	if len(m.filtered) != 1 || m.filtered[0].Root.Count() != 2 {
		t.Fatalf("unexpected filter result %v", names(m))
	}

	m.services[1].Root.Children = append(m.services[1].Root.Children, &model.ObjectNode{Path: "/other"})
	m = press(m, "v")
	if !m.criteria.Verbose {
		t.Fatal("verbose not toggled")
	}
	if got := m.filtered[0].Root.Count(); got != 3 {
		t.Errorf("verbose tree has %d nodes, want 3", got)
	}
}

func TestToggleUniqueRecollects(t *testing.T) {
	m, calls := newTestModel(t, model.FilterCriteria{})
	m = load(t, m)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = next.(MainModel)
	if cmd == nil || !m.loading {
		t.Fatal("expected a refresh")
	}
	next, _ = m.Update(cmd())
	m = next.(MainModel)

	if got := (*calls)[len(*calls)-1]; !got {
		t.Error("collector not asked for unique names")
	}
	if len(m.filtered) != 3 {
		t.Errorf("filtered = %v", names(m))
	}
}

func TestSortByPID(t *testing.T) {
	m, _ := newTestModel(t, model.FilterCriteria{IncludeUnique: true})
	m = load(t, m)

	m = press(m, "p")
	if got := strings.Join(names(m), ","); got != "org.example.Alpha,:1.7,org.example.Zeta" {
		t.Errorf("ascending = %s", got)
	}
	m = press(m, "p")
	if got := strings.Join(names(m), ","); got != "org.example.Zeta,:1.7,org.example.Alpha" {
		t.Errorf("descending = %s", got)
	}
}

func TestDetailView(t *testing.T) {
	m, _ := newTestModel(t, model.FilterCriteria{})
	m = load(t, m)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(MainModel)
	if m.state != stateDetail || m.selected == nil {
		t.Fatal("enter did not open the detail view")
	}
	view := ansi.Strip(m.viewport.View())
	for _, want := range []string{"org.example.Alpha", "/usr/bin/daemon --name org.example.Alpha", "Object Tree:"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q", want)
		}
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(MainModel)
	if m.state != stateList {
		t.Error("esc did not return to the list")
	}
}

func TestCollectError(t *testing.T) {
	m := InitialModel(context.Background(), Options{
		Bus: model.BusSystem,
		Collect: func(context.Context, bool) ([]*model.ServiceEntry, bool, error) {
			return nil, false, errors.New("bus unavailable: no socket")
		},
	})
	m = load(t, m)
	if m.loading || !strings.Contains(m.statusMsg, "bus unavailable") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestViewShowsFlagsAndTotal(t *testing.T) {
	m, _ := newTestModel(t, model.FilterCriteria{ObjectPattern: "/org*", Verbose: true})
	m = load(t, m)

	view := ansi.Strip(m.View())
	for _, want := range []string{"dbus-txt", "session bus", "verbose", "object=/org*", "Total: 1", "v0.0.1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRunRequiresCollector(t *testing.T) {
	if err := Run(context.Background(), Options{}); err == nil {
		t.Error("expected error without a collector")
	}
}
