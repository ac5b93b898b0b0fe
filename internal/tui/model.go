// Package tui is the interactive service browser behind --interactive.
package tui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#585858")) // Dark Gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")). // White
			Background(lipgloss.Color("#7D56F4")). // Purple
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#5f5fd7")). // Purple/Blue
				Bold(true).
				Border(lipgloss.NormalBorder(), false, false, true, false).
				BorderForeground(lipgloss.Color("#585858")). // Dark Gray
				Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5f5fd7")). // Purple/Blue
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676")). // Dimmed Gray
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("#585858")). // Dark Gray
			Padding(0, 1).
			Width(100)

	busTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")). // White
			Background(lipgloss.Color("#22aa22")). // Green
			Padding(0, 1).
			Bold(true)

	flagOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")). // White
			Background(lipgloss.Color("#767676")). // Dimmed Gray
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5f5f")). // Soft red
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#af87ff")). // Lavender
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
)

type modelState int

const (
	stateList modelState = iota
	stateDetail
)

type focusState int

const (
	focusMain focusState = iota
	focusSide
)

// CollectFunc enumerates the bus and returns every admitted service with
// its whole object tree. The boolean reports an interrupted run.
type CollectFunc func(ctx context.Context, includeUnique bool) ([]*model.ServiceEntry, bool, error)

type Options struct {
	Bus      model.Bus
	Criteria model.FilterCriteria
	Collect  CollectFunc
	Version  string
}

type MainModel struct {
	ctx      context.Context
	collect  CollectFunc
	bus      model.Bus
	criteria model.FilterCriteria

	state        modelState
	table        table.Model
	input        textinput.Model
	viewport     viewport.Model
	treeViewport viewport.Model
	listFocus    focusState

	services []*model.ServiceEntry // as collected
	filtered []*model.ServiceEntry // after criteria and the search box
	selected *model.ServiceEntry

	loading   bool
	statusMsg string // transient status/error message shown in status line
	width     int
	height    int
	quitting  bool

	sortCol  string
	sortDesc bool
	version  string
}

func InitialModel(ctx context.Context, opts Options) MainModel {
	t := table.New(
		table.WithColumns(serviceColumns()),
		table.WithFocused(true),
		table.WithHeight(20),
	)

	s := table.DefaultStyles()
	s.Header = tableHeaderStyle.BorderForeground(lipgloss.Color("#585858"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#ffffaf")). // Light Yellow
		Background(lipgloss.Color("#5f00d7")). // Purple
		Bold(false)
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "Service name, * and ? as wildcards..."
	ti.CharLimit = 255
	ti.Width = 50
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.SetValue(opts.Criteria.ServicePattern)
	ti.Blur()

	return MainModel{
		ctx:          ctx,
		collect:      opts.Collect,
		bus:          opts.Bus,
		criteria:     opts.Criteria,
		state:        stateList,
		table:        t,
		input:        ti,
		viewport:     viewport.New(0, 0),
		treeViewport: viewport.New(0, 0),
		listFocus:    focusMain,
		loading:      true,
		sortCol:      "name",
		version:      opts.Version,
	}
}

// Run shows the browser until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Collect == nil {
		return fmt.Errorf("tui: no collector")
	}
	if os.Getenv("COLORTERM") == "" {
		os.Setenv("COLORTERM", "truecolor") //nolint:errcheck
	}

	p := tea.NewProgram(InitialModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("error running tui: %w", err)
	}
	return nil
}

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.refreshServices(),
		tea.EnableMouseCellMotion,
	)
}
