package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Akashic-Trance-Machines/pico-303/internal/display"
	"github.com/Akashic-Trance-Machines/pico-303/internal/hwio"
	"github.com/Akashic-Trance-Machines/pico-303/internal/panel"
)

var (
	// Amber-on-black, like the real OLED
	screenStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555")).
			Foreground(lipgloss.Color("#ffcc66")).
			Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	ccStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
)

const (
	// How often the simulated daemon loop polls the panel.
	simTickInterval = 10 * time.Millisecond

	// How long a spacebar press holds the button down. Must outlast the
	// debounce guard or the press never registers.
	simPressHold = 150 * time.Millisecond

	// CC monitor depth.
	ccLogLines = 6
)

type model struct {
	sim *hwio.Sim
	pnl *panel.Panel
	buf *display.Buffer
	ren *display.Renderer

	// Change notifications land here from the panel's change handler.
	changes chan ccMsg
	sent    []ccMsg

	quitting bool
}

type ccMsg struct {
	controlID uint8
	value     uint8
}

type tickMsg time.Time
type releaseMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(simTickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func releaseAfter() tea.Cmd {
	return tea.Tick(simPressHold, func(time.Time) tea.Msg {
		return releaseMsg{}
	})
}

func newModel(sim *hwio.Sim, pnl *panel.Panel) model {
	buf := display.NewBuffer()
	ren := display.NewRenderer(buf)

	changes := make(chan ccMsg, 64)
	pnl.Table().SetChangeHandler(panel.ChangeHandlerFunc(func(controlID, value uint8) {
		select {
		case changes <- ccMsg{controlID, value}:
		default:
		}
	}))

	m := model{
		sim:     sim,
		pnl:     pnl,
		buf:     buf,
		ren:     ren,
		changes: changes,
	}
	m.paint()
	return m
}

// paint renders the panel state into the off-screen LCD buffer.
func (m model) paint() {
	_ = m.ren.Render(m.pnl.Mode(), m.pnl.Index(), m.pnl.Table().Count(), m.pnl.Current())
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "right", "l":
			// Key repeat produces closely-spaced detents, so holding the
			// key exercises the encoder acceleration for real.
			m.sim.Turn(1, time.Now())

		case "left", "h":
			m.sim.Turn(-1, time.Now())

		case " ":
			m.sim.SetButton(false)
			return m, releaseAfter()
		}

	case releaseMsg:
		m.sim.SetButton(true)

	case tickMsg:
		// Collect CC notifications emitted since the last tick.
		draining := true
		for draining {
			select {
			case cc := <-m.changes:
				m.sent = append(m.sent, cc)
				if len(m.sent) > ccLogLines {
					m.sent = m.sent[len(m.sent)-ccLogLines:]
				}
			default:
				draining = false
			}
		}

		if m.pnl.Update(time.Now()) {
			m.paint()
		}
		return m, tick()
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	rows := m.buf.Rows()
	lcd := screenStyle.Render(terminalRow(rows[0]) + "\n" + terminalRow(rows[1]))

	status := statusStyle.Render(fmt.Sprintf("mode: %-6s  entry %d/%d",
		m.pnl.Mode(), m.pnl.Index()+1, m.pnl.Table().Count()))

	var ccLog strings.Builder
	ccLog.WriteString(dimStyle.Render("cc out:"))
	if len(m.sent) == 0 {
		ccLog.WriteString(dimStyle.Render(" (push to edit, then turn)"))
	}
	for _, cc := range m.sent {
		ccLog.WriteString("\n  " + ccStyle.Render(fmt.Sprintf("cc=%3d val=%3d", cc.controlID, cc.value)))
	}

	help := dimStyle.Render("left/right:turn  space:push  q:quit")

	return fmt.Sprintf("\n%s\n\n%s\n\n%s\n\n%s\n", lcd, status, ccLog.String(), help)
}

// terminalRow maps the LCD's all-pixels-on cell byte to a printable block.
func terminalRow(row string) string {
	return strings.ReplaceAll(row, "\xff", "█")
}
