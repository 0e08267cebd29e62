package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"callconv/internal/driver"
)

type progressModel struct {
	title   string
	events  <-chan driver.SignatureEvent
	spinner spinner.Model
	prog    progress.Model
	items   []sigItem
	width   int
	failed  int
	done    bool
}

type sigItem struct {
	name   string
	status driver.SignatureStatus
}

type eventMsg driver.SignatureEvent
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders batch lowering
// progress for names, in file order. The model quits when events closes.
func NewProgressModel(title string, names []string, events <-chan driver.SignatureEvent) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]sigItem, len(names))
	for i, name := range names {
		items[i] = sigItem{name: name, status: driver.SignatureQueued}
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(driver.SignatureEvent(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%d/%d)", m.title, m.finished(), len(m.items))
	if m.failed > 0 {
		header += fmt.Sprintf(", %d failed", m.failed)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-16, 20)
	for _, item := range m.items {
		label := statusLabel(item.status)
		fmt.Fprintf(&b, "  %s %s\n", styleStatus(item.status).Render(fmt.Sprintf("%10s", label)), truncate(item.name, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev driver.SignatureEvent) tea.Cmd {
	if ev.Index < 0 || ev.Index >= len(m.items) {
		return nil
	}
	m.items[ev.Index].status = ev.Status
	if ev.Status == driver.SignatureError {
		m.failed++
	}
	return m.prog.SetPercent(float64(m.finished()) / float64(len(m.items)))
}

func (m *progressModel) finished() int {
	n := 0
	for _, item := range m.items {
		if item.status == driver.SignatureDone || item.status == driver.SignatureError {
			n++
		}
	}
	return n
}

func statusLabel(status driver.SignatureStatus) string {
	switch status {
	case driver.SignatureWorking:
		return "lowering"
	case driver.SignatureDone:
		return "done"
	case driver.SignatureError:
		return "error"
	default:
		return "queued"
	}
}

func styleStatus(status driver.SignatureStatus) lipgloss.Style {
	switch status {
	case driver.SignatureDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case driver.SignatureError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case driver.SignatureWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if runewidth.StringWidth(value) <= width {
		return value
	}
	return runewidth.Truncate(value, width, "...")
}
