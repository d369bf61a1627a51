// package tui is a terminal port picker and signal display.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pfcm/monocv/mono"
)

// Host is what the Model drives, normally a *hid.Interface.
type Host interface {
	PortCount() int
	PortName(id int) string
	SelectPort(id int) error
	Port() int
	Signals() (gate, pitch float64)
	State() mono.State
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	gateStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type Model struct {
	host     Host
	refresh  func() error
	interval time.Duration

	ports    []string
	cursor   int
	err      error
	quitting bool
}

type tickMsg time.Time

// NewModel makes a Model that redraws the signals every interval. If refresh
// is not nil it is called to rescan devices before the port list is re-read.
func NewModel(host Host, refresh func() error, interval time.Duration) Model {
	m := Model{
		host:     host,
		refresh:  refresh,
		interval: interval,
	}
	m.ports = m.listPorts()
	if p := host.Port(); p >= 0 {
		m.cursor = p
	}
	return m
}

func (m Model) listPorts() []string {
	n := m.host.PortCount()
	ports := make([]string, n)
	for i := range ports {
		ports[i] = m.host.PortName(i)
	}
	return ports
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.ports)-1 {
				m.cursor++
			}

		case "enter", " ":
			if len(m.ports) > 0 {
				m.err = m.host.SelectPort(m.cursor)
			}

		case "x":
			m.err = m.host.SelectPort(-1)

		case "r":
			m.err = nil
			if m.refresh != nil {
				m.err = m.refresh()
			}
			m.ports = m.listPorts()
			m.cursor = min(m.cursor, max(0, len(m.ports)-1))
		}

	case tickMsg:
		return m, m.tick()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("monocv"))
	b.WriteString("\n\n")

	if len(m.ports) == 0 {
		b.WriteString(dimStyle.Render("  no midi inputs"))
		b.WriteString("\n")
	}
	active := m.host.Port()
	for i, name := range m.ports {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%d: %s", cursor, i, name)
		if i == active {
			line = activeStyle.Render(line + " *")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.status())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("↑/↓:move  enter:select  x:close  r:refresh  q:quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) status() string {
	gate, pitch := m.host.Signals()
	st := m.host.State()
	g := dimStyle.Render("gate off")
	if gate > 0 {
		g = gateStyle.Render("gate on ")
	}
	pedal := "up"
	if st.Pedal {
		pedal = "down"
	}
	return fmt.Sprintf("%s  %.1fV  pitch %+.3fV  note %-4s pedal %-4s wheel %3d",
		g, gate, pitch, mono.NoteName(st.Note), pedal, st.PitchWheel)
}
