package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/atinyakov/cloudtty/internal/client/session"
)

// View implements tea.Model.
func (m Model) View() string {
	state := m.ctrl.State()

	var body string
	switch {
	case m.confirmQuit:
		body = m.confirmView()
	case m.notice != "":
		body = m.noticeView()
	case m.promptShown:
		body = m.prompt.View()
	case state.Menu.UploadVisible:
		body = m.upload.View(m.styles)
	case state.Menu.DownloadVisible:
		body = m.download.View(m.styles)
	case state.Status == session.Unauthenticated:
		body = m.unauthenticatedView()
	case state.Menu.MenuOpen:
		body = m.menuView()
	default:
		body = m.connectionView()
	}

	header := m.styles.Header.Width(m.width).Render(m.title())
	footer := m.footer(state)
	height := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if height < 1 {
		height = 1
	}
	main := lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, body)
	return lipgloss.JoinVertical(lipgloss.Left, header, main, footer)
}

func (m Model) title() string {
	if m.cfg.Options.TitleFixed != "" {
		return m.cfg.Options.TitleFixed
	}
	if m.conn != nil {
		if t := m.conn.Title(); t != "" {
			return "cloudtty: " + t
		}
	}
	return "cloudtty"
}

func (m Model) footer(state session.State) string {
	var lines []string
	if m.status != "" {
		style := m.styles.Status
		if m.connErr != nil {
			style = m.styles.Error
		}
		lines = append(lines, style.Render(m.status))
	}

	var help string
	switch {
	case m.confirmQuit, m.notice != "", m.promptShown,
		state.Menu.UploadVisible, state.Menu.DownloadVisible:
	case state.Status == session.Unauthenticated:
		help = helpLine(keys.Login, keys.Clear, keys.Quit)
	case state.Menu.MenuOpen:
		help = helpLine(keys.Upload, keys.Download, keys.Logout, keys.Menu, keys.Quit)
	case m.phase == phaseDisconnected:
		help = helpLine(keys.Recon, keys.Menu, keys.Quit)
	default:
		help = helpLine(keys.Attach, keys.Menu, keys.Quit)
	}
	if help != "" {
		lines = append(lines, m.styles.Help.Render(help))
	}
	return strings.Join(lines, "\n")
}

func (m Model) unauthenticatedView() string {
	var b strings.Builder
	b.WriteString(m.styles.Heading.Render("Authentication Required"))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Text.Render("Please enter your credentials to continue."))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Button.Render("Login (l)"))
	b.WriteString("  ")
	b.WriteString(m.styles.Muted.Render("Clear Stored Credentials (c)"))
	return lipgloss.NewStyle().Align(lipgloss.Center).Render(b.String())
}

func (m Model) menuView() string {
	items := []string{
		m.styles.MenuItem.Render("u  Upload"),
		m.styles.MenuItem.Render("d  Download"),
		m.styles.MenuItem.Render("x  Clear Credentials"),
	}
	return m.styles.Menu.Render(strings.Join(items, "\n"))
}

func (m Model) connectionView() string {
	var b strings.Builder
	switch m.phase {
	case phaseConnecting:
		b.WriteString(m.styles.Text.Render("Connecting to " + m.cfg.Endpoints.WS))
	case phaseConnected:
		b.WriteString(m.styles.Heading.Render("Connected"))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Text.Render("Press Enter to attach. Ctrl-] detaches."))
		if m.sizeFlash != "" {
			b.WriteString("\n\n")
			b.WriteString(m.styles.Muted.Render(m.sizeFlash))
		}
	case phaseDisconnected:
		b.WriteString(m.styles.Heading.Render("Disconnected"))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Text.Render("Press r to reconnect."))
	default:
		b.WriteString(m.styles.Muted.Render("Idle"))
	}
	return lipgloss.NewStyle().Align(lipgloss.Center).Render(b.String())
}

func (m Model) noticeView() string {
	body := m.styles.Text.Render(m.notice) + "\n\n" + m.styles.Help.Render(helpLine(keys.Confirm))
	return m.styles.Notice.Render(body)
}

func (m Model) confirmView() string {
	body := m.styles.Heading.Render("Leave the session?") + "\n\n" +
		m.styles.Text.Render("The terminal connection will be closed.") + "\n\n" +
		m.styles.Help.Render(helpLine(keys.Yes, keys.No))
	return m.styles.Dialog.Render(body)
}
