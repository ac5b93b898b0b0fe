package tui

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// Rows of the list layout, counted from the top border.
const (
	inputRow       = 5
	tableHeaderRow = 7
)

// returns the column index at x cells, or -1 if not found.
func columnAtX(x int, cols []table.Column) int {
	currentX := 0
	for i, col := range cols {
		colWidth := col.Width + 2
		if x >= currentX && x < currentX+colWidth {
			return i
		}
		currentX += colWidth
	}
	return -1
}

func (m *MainModel) handleHeaderClick(x int) {
	switch columnAtX(x, m.table.Columns()) {
	case 0:
		m.setSort("name")
	case 1:
		m.setSort("pid")
	case 2:
		m.setSort("objects")
	case 3:
		m.setSort("command")
	}
}

func (m MainModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	isWheel := msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown
	isClick := msg.Action == tea.MouseActionPress && !isWheel

	if m.state == stateDetail {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if isClick && msg.Y == inputRow {
		m.input.Focus()
		return m, nil
	}
	if isClick && m.input.Focused() {
		m.input.Blur()
	}
	if msg.Y < tableHeaderRow {
		return m, nil
	}

	contentX := msg.X - 2
	listWidth, _, _ := m.paneSizes()
	if contentX < 0 {
		return m, nil
	}

	if contentX >= listWidth+4 {
		if isClick {
			m.listFocus = focusSide
		}
		var cmd tea.Cmd
		m.treeViewport, cmd = m.treeViewport.Update(msg)
		return m, cmd
	}

	if isClick {
		m.listFocus = focusMain
		if msg.Y == tableHeaderRow {
			m.handleHeaderClick(contentX)
		}
		return m, nil
	}
	if isWheel && msg.Action == tea.MouseActionPress {
		// Scroll by one row without jumping the cursor to the pointer.
		key := tea.KeyMsg{Type: tea.KeyDown}
		if msg.Button == tea.MouseButtonWheelUp {
			key = tea.KeyMsg{Type: tea.KeyUp}
		}
		prev := m.table.Cursor()
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(key)
		if m.table.Cursor() != prev {
			m.updateTreeViewport()
		}
		return m, cmd
	}
	return m, nil
}
