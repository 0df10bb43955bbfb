package sink

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"dronetwin/internal/twin"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// Commander is the slice of the bridge the TUI drives.
type Commander interface {
	Submit(twin.Command) (string, error)
	RequestModeSwitch(twin.Mode) error
	ResetSession() error
}

// snapshotMsg carries a snapshot row update.
type snapshotMsg struct{ twin.SnapshotRow }

// resultMsg carries one tick's command outcomes.
type resultMsg struct{ twin.ReconciliationResult }

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

const maxLogLines = 200

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tableBorder   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
	promptMistake = badStyle
)

// TUIWriter renders the twin in a bubbletea dashboard and feeds typed
// commands back into the bridge.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program backed by the given commander.
func NewTUIWriter(cmdr Commander) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cmdr)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteSnapshot implements the bridge's snapshot sink.
func (w *TUIWriter) WriteSnapshot(row twin.SnapshotRow) error {
	w.program.Send(snapshotMsg{row})
	return nil
}

// WriteResult implements the bridge's result sink.
func (w *TUIWriter) WriteResult(res twin.ReconciliationResult) error {
	w.program.Send(resultMsg{res})
	for _, out := range res.Rejected {
		line := fmt.Sprintf("%s rejected %s: %s",
			dimStyle.Render(res.Timestamp.Format(time.RFC3339)),
			out.Command.Kind, out.Reason)
		w.program.Send(logMsg{line: badStyle.Render(line)})
	}
	for _, out := range res.Accepted {
		line := fmt.Sprintf("%s accepted %s",
			dimStyle.Render(res.Timestamp.Format(time.RFC3339)),
			out.Command.Kind)
		w.program.Send(logMsg{line: okStyle.Render(line)})
	}
	return nil
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cmdr     Commander
	table    table.Model
	vp       viewport.Model
	input    textinput.Model
	logs     []string
	row      twin.SnapshotRow
	width    int
	height   int
	status   string
	accepted int
	rejected int
}

func newTUIModel(cmdr Commander) tuiModel {
	cols := []table.Column{
		{Title: "Field", Width: 14},
		{Title: "Value", Width: 28},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(10))
	ti := textinput.New()
	ti.Placeholder = "takeoff | land | move 1 0 0 | rotate 90 | speed 5 | estop | reset | mode simulation"
	ti.Focus()

	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		w, h = 100, 30
	}
	vp := viewport.New(w-2, h/3)

	return tuiModel{cmdr: cmdr, table: t, vp: vp, input: ti, width: w, height: h}
}

func (m tuiModel) Init() tea.Cmd { return textinput.Blink }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width - 2
		m.vp.Height = msg.Height / 3
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.status = m.dispatch(strings.TrimSpace(m.input.Value()))
			m.input.Reset()
		}
	case snapshotMsg:
		m.row = msg.SnapshotRow
		m.table.SetRows(stateRows(msg.SnapshotRow))
	case resultMsg:
		m.accepted += len(msg.Accepted)
		m.rejected += len(msg.Rejected)
	case logMsg:
		m.logs = append(m.logs, wordwrap.String(msg.line, m.vp.Width))
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.vp.SetContent(strings.Join(m.logs, "\n"))
		m.vp.GotoBottom()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m tuiModel) View() string {
	link := okStyle
	switch twin.ConnStatus(m.row.Link) {
	case twin.StatusDegraded:
		link = warnStyle
	case twin.StatusDisconnected:
		link = badStyle
	}
	header := headerStyle.Render(fmt.Sprintf("dronetwin %s", m.row.TwinID)) +
		dimStyle.Render(fmt.Sprintf("  mode=%s ", m.row.Mode)) +
		link.Render(fmt.Sprintf("link=%s", m.row.Link)) +
		dimStyle.Render(fmt.Sprintf("  ok=%d rej=%d", m.accepted, m.rejected))
	status := ""
	if m.status != "" {
		status = promptMistake.Render(m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		tableBorder.Render(m.table.View()),
		m.vp.View(),
		m.input.View(),
		status,
	)
}

// dispatch parses one typed command line and routes it to the bridge.
// Returns a status line for the footer; empty on success.
func (m tuiModel) dispatch(line string) string {
	if line == "" {
		return ""
	}
	fields := strings.Fields(line)
	var cmd twin.Command
	switch fields[0] {
	case "takeoff":
		cmd = twin.NewCommand(twin.CmdTakeOff)
	case "land":
		cmd = twin.NewCommand(twin.CmdLand)
	case "estop":
		cmd = twin.NewCommand(twin.CmdEmergencyStop)
	case "move":
		if len(fields) != 4 {
			return "usage: move <dx> <dy> <dz>"
		}
		dx, err1 := strconv.ParseFloat(fields[1], 64)
		dy, err2 := strconv.ParseFloat(fields[2], 64)
		dz, err3 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return "move arguments must be numbers"
		}
		cmd = twin.NewMove(dx, dy, dz)
	case "rotate":
		if len(fields) != 2 {
			return "usage: rotate <degrees>"
		}
		deg, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return "rotate argument must be a number"
		}
		cmd = twin.NewRotate(deg)
	case "speed":
		if len(fields) != 2 {
			return "usage: speed <mps>"
		}
		mps, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return "speed argument must be a number"
		}
		cmd = twin.NewSetSpeed(mps)
	case "mode":
		if len(fields) != 2 {
			return "usage: mode simulation|connected"
		}
		if err := m.cmdr.RequestModeSwitch(twin.Mode(fields[1])); err != nil {
			return err.Error()
		}
		return ""
	case "reset":
		if err := m.cmdr.ResetSession(); err != nil {
			return err.Error()
		}
		return ""
	default:
		return fmt.Sprintf("unknown command %q", fields[0])
	}
	if _, err := m.cmdr.Submit(cmd); err != nil {
		return err.Error()
	}
	return ""
}

func stateRows(row twin.SnapshotRow) []table.Row {
	return []table.Row{
		{"phase", row.Phase},
		{"position", fmt.Sprintf("%.2f %.2f %.2f", row.X, row.Y, row.Z)},
		{"height", fmt.Sprintf("%.2f m", row.Height)},
		{"yaw", fmt.Sprintf("%.1f°", row.Yaw)},
		{"battery", fmt.Sprintf("%d%%", row.Battery)},
		{"mode", row.Mode},
		{"link", row.Link},
		{"seq", strconv.FormatUint(row.Seq, 10)},
		{"updated", row.Timestamp.Format(time.RFC3339)},
	}
}
