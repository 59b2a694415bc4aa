// Package listen is the live terminal view behind `uairctl listen --tui`: it
// subscribes to the daemon's record stream and maps keys to control commands.
package listen

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"uair/internal/modules/timer/dto"
	"uair/internal/ui/components"
	"uair/internal/ui/theme"
)

type controlPort interface {
	Send(ctx context.Context, input dto.CommandInput) error
	Listen(ctx context.Context, input dto.ListenInput, onRecord func(string) error) error
}

type recordMsg string

type streamEndedMsg struct{ err error }

type sentMsg struct {
	name string
	err  error
}

type keyMap struct {
	Toggle key.Binding
	Next   key.Binding
	Prev   key.Binding
	Finish key.Binding
	Reload key.Binding
	Jump   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle: key.NewBinding(key.WithKeys(" ", "t"), key.WithHelp("space", "pause/resume")),
		Next:   key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n", "next")),
		Prev:   key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p", "prev")),
		Finish: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "finish")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Jump:   key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "jump")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Prev, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Finish, k.Reload},
		{k.Next, k.Prev, k.Jump},
		{k.Help, k.Quit},
	}
}

// Model is driven by two sources: records pushed by the daemon and key presses
// that become fire-and-forget commands on a fresh connection.
type Model struct {
	ctx     context.Context
	control controlPort
	input   dto.ListenInput
	records chan string

	keys     keyMap
	help     help.Model
	prompt   components.Prompt
	current  string
	received int
	status   string
	failed   bool
	ended    bool
	width    int
}

func New(ctx context.Context, control controlPort, input dto.ListenInput) Model {
	return Model{
		ctx:     ctx,
		control: control,
		input:   input,
		records: make(chan string),
		keys:    defaultKeys(),
		help:    help.New(),
		prompt:  components.NewPrompt("Jump to session", "session id", "enter to jump, esc to cancel"),
		status:  "connecting",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.stream(), m.waitRecord())
}

func (m Model) stream() tea.Cmd {
	return func() tea.Msg {
		err := m.control.Listen(m.ctx, m.input, func(record string) error {
			select {
			case m.records <- record:
				return nil
			case <-m.ctx.Done():
				return m.ctx.Err()
			}
		})
		return streamEndedMsg{err: err}
	}
}

func (m Model) waitRecord() tea.Cmd {
	return func() tea.Msg {
		select {
		case record := <-m.records:
			return recordMsg(record)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) send(name string) tea.Cmd {
	return m.sendArg(name, "")
}

func (m Model) sendArg(name, arg string) tea.Cmd {
	return func() tea.Msg {
		err := m.control.Send(m.ctx, dto.CommandInput{SocketPath: m.input.SocketPath, Name: name, Argument: arg})
		return sentMsg{name: name, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.prompt.SetWidth(msg.Width)
		return m, nil
	case components.PromptSubmitMsg:
		if msg.Value == "" || m.ended {
			return m, nil
		}
		return m, m.sendArg("jump", msg.Value)
	case components.PromptCancelMsg:
		return m, nil
	case recordMsg:
		m.current = strings.TrimRight(string(msg), "\n")
		m.received++
		if !m.failed {
			m.status = "live"
		}
		return m, m.waitRecord()
	case streamEndedMsg:
		m.ended = true
		if msg.err != nil {
			m.failed = true
			m.status = msg.err.Error()
		} else {
			m.status = "daemon closed the stream"
		}
		return m, nil
	case sentMsg:
		if msg.err != nil {
			m.failed = true
			m.status = msg.name + ": " + msg.err.Error()
		} else {
			m.failed = false
			m.status = "sent " + msg.name
		}
		return m, nil
	case tea.KeyMsg:
		if m.prompt.Visible() {
			var cmd tea.Cmd
			m.prompt, cmd = m.prompt.Update(msg)
			return m, cmd
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case m.ended:
			return m, nil
		case key.Matches(msg, m.keys.Toggle):
			return m, m.send("toggle")
		case key.Matches(msg, m.keys.Next):
			return m, m.send("next")
		case key.Matches(msg, m.keys.Prev):
			return m, m.send("prev")
		case key.Matches(msg, m.keys.Finish):
			return m, m.send("finish")
		case key.Matches(msg, m.keys.Reload):
			return m, m.send("reload")
		case key.Matches(msg, m.keys.Jump):
			cmd := m.prompt.Open()
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) View() string {
	title := theme.Title.Render("uair")
	if m.input.HasOverride {
		title += theme.Muted.Render("  override " + m.input.Override)
	}

	display := m.current
	if display == "" {
		display = "--"
	}

	status := theme.Ok.Render(m.status)
	switch {
	case m.failed:
		status = theme.Fail.Render(m.status)
	case m.ended:
		status = theme.Hot.Render(m.status)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		theme.Display.Render(display),
		"",
		status,
		m.help.View(m.keys),
	)
	if m.prompt.Visible() {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", m.prompt.View())
	}
	return theme.App.Render(body)
}
