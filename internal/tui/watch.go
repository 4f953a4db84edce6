// Package tui implements the interactive terminal view for live cube
// watching.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cubesense/smartcube"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	moveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	solvedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46"))
)

// Sticker colors by facelet letter.
var stickerStyles = map[byte]lipgloss.Style{
	'U': lipgloss.NewStyle().Background(lipgloss.Color("15")).Foreground(lipgloss.Color("0")),
	'D': lipgloss.NewStyle().Background(lipgloss.Color("11")).Foreground(lipgloss.Color("0")),
	'F': lipgloss.NewStyle().Background(lipgloss.Color("2")).Foreground(lipgloss.Color("0")),
	'B': lipgloss.NewStyle().Background(lipgloss.Color("4")).Foreground(lipgloss.Color("15")),
	'R': lipgloss.NewStyle().Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15")),
	'L': lipgloss.NewStyle().Background(lipgloss.Color("208")).Foreground(lipgloss.Color("0")),
}

const maxRecentMoves = 12
const maxWarnings = 3

// Messages
type (
	eventMsg    struct{ ev smartcube.Event }
	streamEnded struct{}
	tickMsg     time.Time
)

// Model is the watch screen state.
type Model struct {
	hub     *smartcube.Hub
	address string

	status   smartcube.DeviceStatus
	moves    []smartcube.Move
	warnings []string
	err      error
	quitting bool
}

// New builds a watch model for one registered device.
func New(hub *smartcube.Hub, address string) Model {
	return Model{hub: hub, address: address}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenForEvents(), m.tickCmd())
}

func (m Model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.hub.Events()
		if !ok {
			return streamEnded{}
		}
		return eventMsg{ev: ev}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "b":
			m.hub.SendCommand(m.address, smartcube.CommandBattery)
		case "s":
			m.hub.SendCommand(m.address, smartcube.CommandState)
		case "c":
			m.hub.SendCommand(m.address, smartcube.CommandCalibrate)
		}
		return m, nil

	case eventMsg:
		m = m.applyEvent(msg.ev)
		return m, m.listenForEvents()

	case streamEnded:
		m.quitting = true
		return m, tea.Quit

	case tickMsg:
		if st, err := m.hub.Status(m.address); err == nil {
			m.status = st
		}
		return m, m.tickCmd()
	}
	return m, nil
}

// applyEvent folds one hub event into the view state.
func (m Model) applyEvent(ev smartcube.Event) Model {
	if ev.Device() != m.address {
		return m
	}
	switch ev := ev.(type) {
	case smartcube.MoveEvent:
		m.moves = append(m.moves, ev.Move)
		if len(m.moves) > maxRecentMoves {
			m.moves = m.moves[len(m.moves)-maxRecentMoves:]
		}
	case smartcube.StateEvent:
		m.status.Facelets = ev.Facelets
		m.status.Solved = ev.Solved
		if ev.Resynced {
			m.warnings = appendWarning(m.warnings, "tracked state resynced from device snapshot")
		}
	case smartcube.BatteryEvent:
		m.status.Battery = ev.Level
	case smartcube.SessionEvent:
		m.status.State = ev.To
		if ev.Err != nil {
			m.warnings = appendWarning(m.warnings, ev.Err.Error())
		}
	case smartcube.WarningEvent:
		if ev.MissedMoves > 0 {
			m.warnings = appendWarning(m.warnings, fmt.Sprintf("%d move(s) missed", ev.MissedMoves))
		} else if ev.Err != nil {
			m.warnings = appendWarning(m.warnings, ev.Err.Error())
		}
	}
	return m
}

func appendWarning(list []string, w string) []string {
	list = append(list, w)
	if len(list) > maxWarnings {
		list = list[len(list)-maxWarnings:]
	}
	return list
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("smartcube watch"))
	b.WriteString("\n\n")

	line := fmt.Sprintf("%s  [%s]  %s", m.address, m.status.Vendor, m.status.State)
	if m.status.Battery >= 0 {
		line += fmt.Sprintf("  battery %d%%", m.status.Battery)
	}
	b.WriteString(statusStyle.Render(line))
	b.WriteString("\n\n")

	if m.status.Facelets != "" {
		b.WriteString(renderNet(m.status.Facelets))
		b.WriteString("\n")
		if m.status.Solved {
			b.WriteString(solvedStyle.Render("SOLVED"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(m.moves) > 0 {
		notations := make([]string, len(m.moves))
		for i, mv := range m.moves {
			notations[i] = mv.Notation()
		}
		b.WriteString(moveStyle.Render("moves: " + strings.Join(notations, " ")))
		b.WriteString(statusStyle.Render(fmt.Sprintf("  (#%d)", m.moves[len(m.moves)-1].Seq)))
		b.WriteString("\n\n")
	}

	for _, w := range m.warnings {
		b.WriteString(warnStyle.Render("! " + w))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("b battery  s state  c calibrate  q quit"))
	b.WriteString("\n")
	return b.String()
}

// renderNet draws the unfolded cube from a 54-character facelet string.
// Face order within the string is U, R, F, D, L, B.
func renderNet(facelets string) string {
	if len(facelets) != 54 {
		return statusStyle.Render("(no state)")
	}
	sticker := func(face, i int) string {
		c := facelets[face*9+i]
		style, ok := stickerStyles[c]
		if !ok {
			return "  "
		}
		return style.Render("  ")
	}
	row := func(face, r int) string {
		return sticker(face, r*3) + sticker(face, r*3+1) + sticker(face, r*3+2)
	}

	pad := strings.Repeat(" ", 6)
	var b strings.Builder
	for r := 0; r < 3; r++ {
		b.WriteString(pad + row(0, r) + "\n") // U
	}
	// middle band: L F R B
	for r := 0; r < 3; r++ {
		b.WriteString(row(4, r) + row(2, r) + row(1, r) + row(5, r) + "\n")
	}
	for r := 0; r < 3; r++ {
		b.WriteString(pad + row(3, r) + "\n") // D
	}
	return b.String()
}
