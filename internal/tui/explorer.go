// Package tui is an interactive explorer comparing finite differences
// with exact derivatives while the sampling settings change.
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dsmath/internal/compiler"
	"github.com/san-kum/dsmath/internal/config"
	"github.com/san-kum/dsmath/internal/experiment"
	"github.com/san-kum/dsmath/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type state int

const (
	stateMenu state = iota
	stateExplore
)

type field int

const (
	fieldX field = iota
	fieldPoints
	fieldStep
	fieldOrder
	fieldCount
)

var fieldNames = [fieldCount]string{"x", "points", "step", "order"}

const (
	maxPoints = 15
	minStep   = 1e-12
	maxStep   = 10
)

type model struct {
	state     state
	cursor    int
	names     []string
	functions *experiment.Registry
	compilers *compiler.Registry

	selected experiment.Function
	field    field
	x        float64
	points   int
	step     float64
	order    int

	cmp experiment.Comparison
	err error

	width  int
	height int
}

func newModel(functions *experiment.Registry, compilers *compiler.Registry) model {
	return model{
		state:     stateMenu,
		names:     functions.ListFunctions(),
		functions: functions,
		compilers: compilers,
		points:    config.DefaultPoints,
		step:      config.DefaultStep,
		order:     config.DefaultOrder,
		width:     80,
		height:    24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case stateMenu:
			return m.menuKey(msg)
		case stateExplore:
			return m.exploreKey(msg)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.names)-1 {
			m.cursor++
		}
	case "enter", " ":
		f, err := m.functions.GetFunction(m.names[m.cursor])
		if err != nil {
			m.err = err
			return m, nil
		}
		m.selected = f
		m.x = 0.5*(f.Domain[0]+f.Domain[1]) + 0.1
		m.state = stateExplore
		m.field = fieldX
		m.recompute()
	}
	return m, nil
}

func (m model) exploreKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		m.state = stateMenu
		m.err = nil
		return m, nil
	case "up", "k":
		if m.field > 0 {
			m.field--
		}
		return m, nil
	case "down", "j":
		if m.field < fieldCount-1 {
			m.field++
		}
		return m, nil
	case "left", "h":
		m.adjust(-1)
	case "right", "l":
		m.adjust(1)
	case "r":
		m.points = config.DefaultPoints
		m.step = config.DefaultStep
		m.order = config.DefaultOrder
	default:
		return m, nil
	}
	m.recompute()
	return m, nil
}

// adjust moves the selected field one notch in direction dir. The step
// moves by factors of two, the order stays below the number of points.
func (m *model) adjust(dir int) {
	switch m.field {
	case fieldX:
		m.x += float64(dir) * 0.1
	case fieldPoints:
		m.points = min(max(m.points+dir, 2), maxPoints)
		m.order = min(m.order, m.points-1)
	case fieldStep:
		m.step = math.Min(math.Max(math.Ldexp(m.step, dir), minStep), maxStep)
	case fieldOrder:
		m.order = min(max(m.order+dir, 0), m.points-1)
	}
}

func (m *model) recompute() {
	e, err := experiment.New(m.functions, m.compilers, experiment.Config{
		Function: m.selected.Name,
		Points:   m.points,
		Step:     m.step,
		Order:    m.order,
	})
	if err != nil {
		m.err = err
		return
	}
	m.cmp, m.err = e.At(m.x)
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateExplore:
		return m.viewExplore()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("            " + cyan.Render("d s m a t h") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.names {
		f, _ := m.functions.GetFunction(name)
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-10s", name)) + dim.Render(f.Description) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-10s", name)) + dimmer.Render(f.Description) + "\n")
		}
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString("      " + red.Render(m.err.Error()) + "\n\n")
	}
	b.WriteString(dim.Render("      ↑↓ select   enter explore   q quit") + "\n")

	return b.String()
}

func (m model) fieldValue(f field) string {
	switch f {
	case fieldX:
		return fmt.Sprintf("%10.4g", m.x)
	case fieldPoints:
		return fmt.Sprintf("%10d", m.points)
	case fieldStep:
		return fmt.Sprintf("%10.3g", m.step)
	case fieldOrder:
		return fmt.Sprintf("%10d", m.order)
	}
	return ""
}

func (m model) viewExplore() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.selected.Name) + "  " + dim.Render(m.selected.Description) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 30)) + "\n\n")

	for f := field(0); f < fieldCount; f++ {
		if f == m.field {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-8s", fieldNames[f])) + magenta.Render(m.fieldValue(f)) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-8s", fieldNames[f])) + dim.Render(m.fieldValue(f)) + "\n")
		}
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString("      " + red.Render(m.err.Error()) + "\n")
	} else {
		rows := make([][]string, 0, len(m.cmp.Exact))
		for n, e := range m.cmp.Errors() {
			rows = append(rows, []string{
				fmt.Sprintf("%d", n),
				fmt.Sprintf("% .10e", m.cmp.Exact[n]),
				fmt.Sprintf("% .10e", m.cmp.Approx[n]),
				viz.ErrorStyle(e).Render(fmt.Sprintf("%.3e", e)),
			})
		}
		b.WriteString(viz.Table([]string{"ORDER", "EXACT", "FINITE DIFF", "ERROR"}, rows) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select  ←→ adjust  r reset  esc back") + "\n")

	return b.String()
}

// Run starts the explorer on the alternate screen.
func Run(functions *experiment.Registry, compilers *compiler.Registry) error {
	p := tea.NewProgram(newModel(functions, compilers), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
