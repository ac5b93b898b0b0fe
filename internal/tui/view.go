package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/dbus-txt/dbus-txt/internal/output"
)

func (m MainModel) View() string {
	if m.quitting {
		return ""
	}

	outerStyle := baseStyle.
		Width(m.width-2).
		Height(m.height-2).
		Padding(0, 1)

	if m.state == stateDetail {
		return outerStyle.Render(m.detailView())
	}
	return outerStyle.Render(m.listView())
}

func (m MainModel) header() string {
	components := []string{
		titleStyle.Render("dbus-txt"),
		busTabStyle.Render(string(m.bus) + " bus"),
		flag("verbose", m.criteria.Verbose),
		flag("unique", m.criteria.IncludeUnique),
	}
	for _, p := range []struct{ label, value string }{
		{"object", m.criteria.ObjectPattern},
		{"interface", m.criteria.InterfacePattern},
		{"process", m.criteria.ProcessPattern},
	} {
		if p.value != "" {
			components = append(components, flagOffStyle.Render(p.label+"="+truncate.StringWithTail(output.Sanitize(p.value), 24, "…")))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, components...)
}

func flag(name string, on bool) string {
	if on {
		return busTabStyle.Render(name)
	}
	return flagOffStyle.Render(name)
}

func (m MainModel) footer(helpText string) string {
	footerContent := helpText
	if m.version != "" {
		gap := m.width - 6 - lipgloss.Width(helpText) - lipgloss.Width(m.version)
		if gap > 0 {
			footerContent = helpText + strings.Repeat(" ", gap) + m.version
		}
	}
	return footerStyle.Width(m.width - 4).Render(footerContent)
}

func (m MainModel) listView() string {
	status := "Mode: Navigation (Press / to search)"
	switch {
	case m.statusMsg != "":
		status = errorStyle.Render(m.statusMsg)
	case m.loading:
		status = "Loading services..."
	case m.input.Focused():
		status = "Mode: Searching (Press Esc/Enter to stop)"
	}

	activeBorderColor := lipgloss.Color("#5f5fd7") // Purple/Blue
	dimBorderColor := lipgloss.Color("#585858")    // Dark Gray

	treeBorderColor := dimBorderColor
	treeHeaderColor := lipgloss.Color("#bcbcbc") // Light Gray
	if m.listFocus == focusSide {
		treeBorderColor = activeBorderColor
		treeHeaderColor = activeBorderColor
	}

	treeContainerStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(treeBorderColor).
		PaddingLeft(2).
		Height(m.table.Height())

	treeHeader := "Objects"
	if s := m.selectedService(); s != nil {
		treeHeader = truncate.StringWithTail(output.Sanitize(s.Bus.Name), uint(max(m.treeViewport.Width-4, 1)), "…")
	}
	treeHeader += scrollHint(m.treeViewport.AtTop(), m.treeViewport.AtBottom())

	treeHeaderStyle := tableHeaderStyle.
		Width(m.treeViewport.Width).
		Foreground(treeHeaderColor).
		BorderForeground(treeBorderColor)

	s := table.DefaultStyles()
	if m.listFocus == focusMain {
		s.Header = tableHeaderStyle.BorderForeground(activeBorderColor)
	} else {
		s.Header = tableHeaderStyle.BorderForeground(dimBorderColor)
	}
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#ffffaf")). // Light Yellow
		Background(lipgloss.Color("#5f00d7")). // Purple
		Bold(false)
	m.table.SetStyles(s)

	listWidth, _, _ := m.paneSizes()

	list := m.table.View()
	if !m.loading && len(m.filtered) == 0 {
		list = lipgloss.JoinVertical(lipgloss.Left, list, dimStyle.Render(output.NoMatchMessage))
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth+4).Render(list),
		treeContainerStyle.Render(
			lipgloss.JoinVertical(lipgloss.Left,
				treeHeaderStyle.Render(treeHeader),
				lipgloss.NewStyle().PaddingLeft(1).Render(m.treeViewport.View()),
			),
		),
	)

	helpText := fmt.Sprintf("Total: %d | Enter: Detail | n/p/o/c: Sort | v: Verbose | a: Unique | r: Refresh | Tab: Focus | Esc/q: Quit", len(m.filtered))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		lipgloss.NewStyle().Height(1).Render(""),
		lipgloss.NewStyle().MarginBottom(1).PaddingLeft(1).Render(status),
		lipgloss.NewStyle().MarginBottom(1).PaddingLeft(1).Render(m.input.View()),
		mainContent,
		lipgloss.NewStyle().Height(1).Render(""),
		m.footer(helpText),
	)
}

func (m MainModel) detailView() string {
	if m.selected == nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.header(),
			lipgloss.NewStyle().Height(1).Render(""),
			lipgloss.NewStyle().Width(m.width-4).Height(m.height-7).Render("Loading details..."),
			lipgloss.NewStyle().Height(1).Render(""),
			m.footer("Esc/q: Back"),
		)
	}

	title := "Service Detail" + scrollHint(m.viewport.AtTop(), m.viewport.AtBottom())
	activeBorderColor := lipgloss.Color("#5f5fd7") // Purple

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		lipgloss.NewStyle().Height(1).Render(""),
		tableHeaderStyle.Width(m.viewport.Width).BorderForeground(activeBorderColor).Render(title),
		lipgloss.NewStyle().PaddingLeft(1).Render(m.viewport.View()),
		lipgloss.NewStyle().Height(1).Render(""),
		m.footer("Esc/q: Back | Up/Down: Scroll"),
	)
}

func scrollHint(top, bottom bool) string {
	switch {
	case !top && !bottom:
		return " ↕"
	case !top:
		return " ↑"
	case !bottom:
		return " ↓"
	}
	return ""
}
