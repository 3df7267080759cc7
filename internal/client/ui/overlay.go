package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type transferKind int

const (
	transferUpload transferKind = iota
	transferDownload
)

func (k transferKind) String() string {
	if k == transferUpload {
		return "upload"
	}
	return "download"
}

// overlay is the path dialog shown for a transfer. It never touches the
// connection itself; it reports a path or a dismissal.
type overlay struct {
	kind  transferKind
	title string
	hint  string
	input textinput.Model
}

type overlaySubmitMsg struct {
	kind transferKind
	path string
}

type overlayCloseMsg struct {
	kind transferKind
}

func newOverlay(kind transferKind) overlay {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Width = 48

	o := overlay{kind: kind, input: ti}
	switch kind {
	case transferUpload:
		o.title = "Upload"
		o.hint = "Local file to send to the remote working directory"
		o.input.Placeholder = "path/to/local/file"
	case transferDownload:
		o.title = "Download"
		o.hint = "Remote file to fetch into the download directory"
		o.input.Placeholder = "path/to/remote/file"
	}
	return o
}

func (o overlay) open() (overlay, tea.Cmd) {
	o.input.Reset()
	return o, o.input.Focus()
}

func (o overlay) Update(msg tea.Msg) (overlay, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Confirm):
			path := strings.TrimSpace(o.input.Value())
			if path == "" {
				return o, nil
			}
			kind := o.kind
			return o, func() tea.Msg { return overlaySubmitMsg{kind: kind, path: path} }
		case key.Matches(msg, keys.Cancel):
			kind := o.kind
			return o, func() tea.Msg { return overlayCloseMsg{kind: kind} }
		}
	}
	var cmd tea.Cmd
	o.input, cmd = o.input.Update(msg)
	return o, cmd
}

func (o overlay) View(st Styles) string {
	var b strings.Builder
	b.WriteString(st.Heading.Render(o.title))
	b.WriteString("\n\n")
	b.WriteString(st.Muted.Render(o.hint))
	b.WriteString("\n")
	b.WriteString(o.input.View())
	b.WriteString("\n\n")
	b.WriteString(st.Help.Render(helpLine(keys.Confirm, keys.Cancel)))
	return st.Dialog.Render(b.String())
}
