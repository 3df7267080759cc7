// Package prompt implements the login prompt: a modal form that yields one
// username/password pair or a cancellation.
package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MsgEmptyFields is shown when either field is blank on submit.
const MsgEmptyFields = "Please enter both username and password."

const (
	fieldUsername = iota
	fieldPassword
	fieldCount
)

// SubmitMsg carries the pair entered by the user. Values are passed as typed;
// the session controller trims them.
type SubmitMsg struct {
	Username string
	Password string
}

// CancelMsg reports that the user dismissed the prompt.
type CancelMsg struct{}

// KeyMap defines the prompt's key bindings.
type KeyMap struct {
	Submit key.Binding
	Cancel key.Binding
	Next   key.Binding
	Prev   key.Binding
}

// DefaultKeyMap is Enter to submit, Esc to cancel and Tab/Shift-Tab (or the
// arrow keys) to move between the fields.
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "login"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("Tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
	),
}

// Styles controls how the prompt renders.
type Styles struct {
	Box   lipgloss.Style
	Title lipgloss.Style
	Label lipgloss.Style
	Error lipgloss.Style
	Help  lipgloss.Style
}

// DefaultStyles returns an unthemed style set.
func DefaultStyles() Styles {
	return Styles{
		Box:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 3),
		Title: lipgloss.NewStyle().Bold(true).MarginBottom(1),
		Label: lipgloss.NewStyle(),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Help:  lipgloss.NewStyle().Faint(true),
	}
}

// Model is the bubbletea model of the login prompt.
type Model struct {
	Title  string
	Keys   KeyMap
	Styles Styles

	inputs []textinput.Model
	focus  int
	err    string
}

// New returns a prompt with the username field focused.
func New() Model {
	inputs := make([]textinput.Model, fieldCount)

	user := textinput.New()
	user.Placeholder = "Enter your username"
	user.CharLimit = 256
	user.Width = 32
	user.Prompt = ""
	inputs[fieldUsername] = user

	pass := textinput.New()
	pass.Placeholder = "Enter your password"
	pass.CharLimit = 256
	pass.Width = 32
	pass.Prompt = ""
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	inputs[fieldPassword] = pass

	m := Model{
		Title:  "Authentication Required",
		Keys:   DefaultKeyMap,
		Styles: DefaultStyles(),
		inputs: inputs,
	}
	m.setFocus(fieldUsername)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Reset clears both fields and any message and focuses the username field.
func (m Model) Reset() (Model, tea.Cmd) {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.err = ""
	cmd := m.setFocus(fieldUsername)
	return m, cmd
}

// SetError shows msg below the fields.
func (m *Model) SetError(msg string) {
	m.err = msg
}

// Err returns the message currently shown, if any.
func (m Model) Err() string {
	return m.err
}

// Focused returns the index of the focused field: 0 for the username, 1 for
// the password.
func (m Model) Focused() int {
	return m.focus
}

// Values returns the raw field contents.
func (m Model) Values() (username, password string) {
	return m.inputs[fieldUsername].Value(), m.inputs[fieldPassword].Value()
}

// Update handles key presses. Submit and cancel are reported through the
// returned command as SubmitMsg and CancelMsg.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.Keys.Submit):
			username, password := m.Values()
			if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
				m.err = MsgEmptyFields
				return m, nil
			}
			m.err = ""
			return m, func() tea.Msg {
				return SubmitMsg{Username: username, Password: password}
			}
		case key.Matches(msg, m.Keys.Cancel):
			return m, func() tea.Msg { return CancelMsg{} }
		case key.Matches(msg, m.Keys.Next):
			return m, m.setFocus((m.focus + 1) % fieldCount)
		case key.Matches(msg, m.Keys.Prev):
			return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// View renders the prompt box.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.Styles.Title.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(m.Styles.Label.Render("Username:"))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldUsername].View())
	b.WriteString("\n\n")
	b.WriteString(m.Styles.Label.Render("Password:"))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldPassword].View())
	b.WriteString("\n\n")

	if m.err != "" {
		b.WriteString(m.Styles.Error.Render(m.err))
		b.WriteString("\n\n")
	}
	b.WriteString(m.Styles.Help.Render("Enter: Login | Tab: Next field | Esc: Cancel"))

	return m.Styles.Box.Render(b.String())
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
			continue
		}
		m.inputs[j].Blur()
	}
	return cmd
}
