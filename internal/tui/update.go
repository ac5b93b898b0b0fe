package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case servicesMsg:
		m.loading = false
		m.services = msg.services
		if msg.interrupted {
			m.statusMsg = "Interrupted: showing the services completed so far"
		}
		m.sortServices()
		m.filterServices()
		m.updateTreeViewport()
		return m, nil

	case errMsg:
		m.loading = false
		m.statusMsg = msg.err.Error()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.state == stateDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	}
	return m, nil
}

func (m MainModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input.Focused() {
		if msg.String() == "enter" || msg.String() == "esc" {
			m.input.Blur()
			return m, nil
		}
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		m.filterServices()
		m.table.SetCursor(0)
		m.updateTreeViewport()
		return m, inputCmd
	}

	m.statusMsg = "" // clear any transient error on interaction
	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "/":
		m.input.Focus()
		return m, textinput.Blink
	case "enter":
		if s := m.selectedService(); s != nil {
			m.selected = s
			m.state = stateDetail
			m.updateDetailViewport()
			m.viewport.GotoTop()
		}
		return m, nil
	case "tab":
		if m.listFocus == focusMain {
			m.listFocus = focusSide
		} else {
			m.listFocus = focusMain
		}
		return m, nil
	case "v":
		m.criteria.Verbose = !m.criteria.Verbose
		m.filterServices()
		m.updateTreeViewport()
		return m, nil
	case "a":
		m.criteria.IncludeUnique = !m.criteria.IncludeUnique
		m.loading = true
		return m, m.refreshServices()
	case "r":
		m.loading = true
		return m, m.refreshServices()
	case "n", "p", "o", "c":
		m.setSort(map[string]string{"n": "name", "p": "pid", "o": "objects", "c": "command"}[msg.String()])
		return m, nil
	}

	var cmd tea.Cmd
	if m.listFocus == focusSide {
		m.treeViewport, cmd = m.treeViewport.Update(msg)
		return m, cmd
	}
	prev := m.table.Cursor()
	m.table, cmd = m.table.Update(msg)
	if m.table.Cursor() != prev {
		m.updateTreeViewport()
	}
	return m, cmd
}

func (m MainModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "backspace":
		m.state = stateList
		m.selected = nil
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *MainModel) setSort(col string) {
	if m.sortCol == col {
		m.sortDesc = !m.sortDesc
	} else {
		m.sortCol = col
		m.sortDesc = false
	}
	m.sortServices()
	m.filterServices()
	m.table.SetColumns(m.sizedColumns())
	m.updateTreeViewport()
}

func (m *MainModel) resize(width, height int) {
	m.width = width
	m.height = height

	listWidth, listHeight, treeWidth := m.paneSizes()
	m.table.SetColumns(m.sizedColumns())
	m.table.SetWidth(listWidth)
	m.table.SetHeight(listHeight)

	m.treeViewport.Width = treeWidth
	m.treeViewport.Height = listHeight - 2

	m.viewport.Width = max(width-8, 10)
	m.viewport.Height = max(height-8, 3)

	m.updateTreeViewport()
	if m.state == stateDetail {
		m.updateDetailViewport()
	}
}

func (m *MainModel) paneSizes() (listWidth, listHeight, treeWidth int) {
	availableWidth := max(m.width-6, 0)
	listHeight = max(m.height-11, 5)

	listPaneWidth := max(int(float64(availableWidth)*0.6), 10)
	listWidth = max(listPaneWidth-4, 10)
	treeWidth = max(availableWidth-listPaneWidth-4, 10)
	return listWidth, listHeight, treeWidth
}

// sizedColumns gives the spare width to the command column.
func (m *MainModel) sizedColumns() []table.Column {
	listWidth, _, _ := m.paneSizes()
	cols := m.getColumns()
	fixed := 0
	for _, c := range cols[:3] {
		fixed += c.Width + 2
	}
	cols[3].Width = max(listWidth-fixed-2, 10)
	return cols
}
