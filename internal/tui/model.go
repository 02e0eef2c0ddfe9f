package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/session"
	"github.com/muurk/btscan/internal/signal"
	"github.com/muurk/btscan/internal/ui"
)

// tickInterval drives the scan progress bar.
const tickInterval = 250 * time.Millisecond

type tickMsg time.Time

// Control is the part of the session controller the screen drives.
type Control interface {
	Start()
	Stop()
	Toggle()
	State() session.State
	Snapshot() []discovery.Device
}

// scanKeyMap defines key bindings for the scan screen
type scanKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k scanKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Up, k.Down, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k scanKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Quit},
		{k.Up, k.Down},
	}
}

// promptKeyMap defines key bindings while a consent question is shown
type promptKeyMap struct {
	Yes key.Binding
	No  key.Binding
}

func (p promptKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{p.Yes, p.No}
}

func (p promptKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{p.Yes, p.No}}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device discovery.Device
}

func (d deviceItem) FilterValue() string {
	return d.device.DisplayName() + " " + d.device.Address
}

// deviceDelegate renders one device as a two-line row
type deviceDelegate struct{}

func (d deviceDelegate) Height() int { return 2 }

func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(deviceItem)
	if !ok {
		return
	}
	dev := it.device

	name := "  " + dev.DisplayName()
	if index == m.Index() {
		name = SelectedRowStyle.Render("→ " + dev.DisplayName())
	} else {
		name = RowStyle.Render(name)
	}

	bars := lipgloss.NewStyle().Foreground(ui.SignalColor(dev.RSSI)).Render(ui.SignalGlyph(dev.RSSI))
	reading := "no signal reading"
	if dev.RSSI != signal.Unknown {
		reading = dev.FormattedRSSI()
	}

	paired := DetailStyle.Render(dev.PairedLabel())
	if dev.Paired {
		paired = PairedStyle.Render(dev.PairedLabel())
	}

	fmt.Fprintf(w, "%s  %s\n    %s  •  %s  •  %s",
		name, bars,
		DetailStyle.Render(dev.Address),
		DetailStyle.Render(reading),
		paired)
}

// Model is the interactive scan screen.
type Model struct {
	ctrl    Control
	backend string
	timeout time.Duration
	now     func() time.Time

	// Session view
	State   session.State
	Result  *session.Result
	Err     *session.Error
	Prompt  *AskMsg
	Devices list.Model

	// UI state
	Width       int
	Height      int
	Spinner     spinner.Model
	ProgressBar progress.Model
	ScanStart   time.Time
	Help        help.Model
	Keys        scanKeyMap
	PromptKeys  promptKeyMap
}

// NewModel creates the scan screen for ctrl. timeout sizes the progress bar.
func NewModel(ctrl Control, backend string, timeout time.Duration) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	progressBar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))

	deviceList := list.New([]list.Item{}, deviceDelegate{}, 0, 0)
	deviceList.SetShowTitle(false)
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(false)
	deviceList.SetShowHelp(false)
	deviceList.KeyMap.Quit.SetEnabled(false)

	keys := scanKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s/space", "start/stop scan"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	promptKeys := promptKeyMap{
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "no"),
		),
	}

	m := Model{
		ctrl:        ctrl,
		backend:     backend,
		timeout:     timeout,
		now:         time.Now,
		State:       ctrl.State(),
		Devices:     deviceList,
		Spinner:     s,
		ProgressBar: progressBar,
		Help:        help.New(),
		Keys:        keys,
		PromptKeys:  promptKeys,
	}
	m.setDevices(ctrl.Snapshot())
	return m
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.Spinner.Tick
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Prompt != nil {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Devices.SetSize(msg.Width-6, msg.Height-14)

	case StateMsg:
		m.State = msg.State
		if msg.State == session.Scanning {
			m.ScanStart = m.now()
			m.Result = nil
			m.Err = nil
			return m, tick()
		}

	case DevicesMsg:
		m.setDevices(msg.Devices)

	case EndedMsg:
		res := msg.Result
		m.Result = &res
		m.Err = nil
		m.setDevices(res.Devices)

	case FailedMsg:
		m.Err = msg.Err
		m.Result = nil

	case AskMsg:
		if m.Prompt != nil {
			answer(m.Prompt, false)
		}
		m.Prompt = &msg

	case tickMsg:
		if m.State == session.Scanning {
			return m, tick()
		}

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Toggle):
		m.ctrl.Toggle()
		return m, nil
	}

	var cmd tea.Cmd
	m.Devices, cmd = m.Devices.Update(msg)
	return m, cmd
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.PromptKeys.Yes):
		answer(m.Prompt, true)
		m.Prompt = nil
	case key.Matches(msg, m.PromptKeys.No):
		answer(m.Prompt, false)
		m.Prompt = nil
	case msg.String() == "ctrl+c":
		answer(m.Prompt, false)
		m.Prompt = nil
		return m, tea.Quit
	}
	return m, nil
}

// answer never blocks; the asker may already have given up.
func answer(p *AskMsg, yes bool) {
	select {
	case p.Reply <- yes:
	default:
	}
}

func (m *Model) setDevices(devices []discovery.Device) {
	items := make([]list.Item, len(devices))
	for i, d := range devices {
		items[i] = deviceItem{device: d}
	}
	m.Devices.SetItems(items)
}

// ToggleLabel is the caption of the scan button
func (m Model) ToggleLabel() string {
	if m.State == session.Scanning {
		return "Stop scan"
	}
	return "Start scan"
}

// StatusLine describes what the session is doing
func (m Model) StatusLine() string {
	switch m.State {
	case session.Scanning:
		return "Scanning..."
	case session.AwaitingAdapterEnable:
		return "Waiting for the adapter to be turned on..."
	case session.AwaitingPermission:
		return "Waiting for permission to scan..."
	}
	switch {
	case m.Err != nil:
		return ui.FailureTitle(m.Err.Kind)
	case m.Result != nil:
		return ui.StatusText(m.Result.Status, len(m.Result.Devices))
	case m.State == session.Stopped:
		return "Stopped. Press s to try again"
	default:
		return "Press s to start scanning"
	}
}

// progress returns the elapsed fraction of the scan timeout
func (m Model) progress() float64 {
	if m.timeout <= 0 || m.ScanStart.IsZero() {
		return 0
	}
	f := float64(m.now().Sub(m.ScanStart)) / float64(m.timeout)
	if f > 1 {
		f = 1
	}
	return f
}

// View renders the scan screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Nearby Devices"))
	b.WriteString("  ")
	b.WriteString(ButtonStyle.Render(m.ToggleLabel()))
	b.WriteString("\n\n")

	status := StatusStyle.Render(m.StatusLine())
	if m.State == session.Scanning || m.State.Awaiting() {
		status = m.Spinner.View() + " " + status
	}
	b.WriteString(status)
	b.WriteString("\n")

	if m.State == session.Scanning {
		elapsed := m.now().Sub(m.ScanStart).Truncate(time.Second)
		b.WriteString(m.ProgressBar.ViewAs(m.progress()))
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("  %s / %s", elapsed, m.timeout)))
		b.WriteString("\n")
	}

	if m.Err != nil {
		b.WriteString(ErrorBannerStyle.Render(ui.FailureMarker + " " + m.Err.Message))
		b.WriteString("\n")
		if !m.Err.Retryable() {
			b.WriteString(WarningBannerStyle.Render("Scanning is not possible on this host."))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if m.Prompt != nil {
		b.WriteString(PromptStyle.Render(m.Prompt.Question + "\n\n" + SubtitleStyle.Render("[y]es / [n]o")))
		b.WriteString("\n")
	} else if len(m.Devices.Items()) == 0 {
		b.WriteString(SubtitleStyle.Render("No devices yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.Devices.View())
	}

	var footer string
	if m.Prompt != nil {
		footer = m.Help.View(m.PromptKeys)
	} else {
		footer = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(BuildHeaderContent(m.backend), b.String(), footer, m.Width, m.Height)
}
