// Package ui is the root bubbletea model of the client. It executes the
// effects returned by the session controller and owns the terminal
// connection they mount.
package ui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atinyakov/cloudtty/internal/client/prompt"
	"github.com/atinyakov/cloudtty/internal/client/session"
	"github.com/atinyakov/cloudtty/internal/client/terminal"
	"github.com/atinyakov/cloudtty/internal/credential"
)

const mountTimeout = 30 * time.Second

// MountFunc establishes a terminal connection.
type MountFunc func(ctx context.Context, p terminal.Params) (*terminal.Conn, error)

// Config wires the application to its collaborators.
type Config struct {
	Controller     *session.Controller
	Endpoints      terminal.Endpoints
	Options        terminal.ClientOptions
	Theme          terminal.Theme
	HTTPClient     *http.Client
	Dialer         *websocket.Dialer
	DownloadDir    string
	ScrollbackSize int
	Logger         *zap.Logger
	// Mount defaults to terminal.Mount.
	Mount MountFunc
}

type connPhase int

const (
	phaseIdle connPhase = iota
	phaseConnecting
	phaseConnected
	phaseDisconnected
)

// Messages produced by commands. gen is the connection generation the
// command was started for; results for an older generation are dropped.
type (
	mountedMsg struct {
		gen  int
		conn *terminal.Conn
		err  error
	}
	disconnectedMsg struct {
		gen int
		err error
	}
	attachDoneMsg struct {
		gen int
		err error
	}
	transferDoneMsg struct {
		gen    int
		kind   transferKind
		target string
		err    error
	}
)

// Model is the application model.
type Model struct {
	cfg    Config
	ctrl   *session.Controller
	log    *zap.Logger
	styles Styles

	prompt      prompt.Model
	promptShown bool
	upload      overlay
	download    overlay

	gen     int
	conn    *terminal.Conn
	phase   connPhase
	connErr error

	notice       string
	status       string
	sizeFlash    string
	transferring bool
	confirmQuit  bool

	width  int
	height int

	pending []tea.Cmd
}

// New initialises the session controller and returns the model ready to run.
func New(cfg Config) (Model, error) {
	if cfg.Controller == nil {
		return Model{}, errors.New("ui: controller is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Mount == nil {
		cfg.Mount = terminal.Mount
	}

	st := NewStyles(cfg.Theme)
	p := prompt.New()
	p.Styles = st.Prompt

	m := Model{
		cfg:      cfg,
		ctrl:     cfg.Controller,
		log:      cfg.Logger,
		styles:   st,
		prompt:   p,
		upload:   newOverlay(transferUpload),
		download: newOverlay(transferDownload),
		width:    80,
		height:   24,
	}

	m.log.Debug("client options",
		zap.String("renderer", cfg.Options.RendererType),
		zap.Bool("disable_leave_alert", cfg.Options.DisableLeaveAlert),
		zap.Bool("disable_resize_overlay", cfg.Options.DisableResizeOverlay),
	)

	effects, err := m.ctrl.Initialize()
	if err != nil {
		return Model{}, err
	}
	var cmd tea.Cmd
	m, cmd = m.apply(effects)
	m.pending = append(m.pending, cmd)
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{m.prompt.Init()}, m.pending...)
	if m.cfg.Options.TitleFixed != "" {
		cmds = append(cmds, tea.SetWindowTitle(m.cfg.Options.TitleFixed))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.conn != nil {
			if err := m.conn.Resize(msg.Width, msg.Height); err != nil {
				m.log.Debug("failed to send resize", zap.Error(err))
			}
			if !m.cfg.Options.DisableResizeOverlay {
				m.sizeFlash = fmt.Sprintf("%dx%d", msg.Width, msg.Height)
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case prompt.SubmitMsg:
		return m.apply(m.ctrl.SubmitCredential(msg.Username, msg.Password))

	case prompt.CancelMsg:
		// The prompt closes on cancel; ShowPrompt then opens a fresh one.
		m.promptShown = false
		return m.apply(m.ctrl.CancelPrompt())

	case overlayCloseMsg:
		return m.closeOverlay(msg.kind)

	case overlaySubmitMsg:
		var cmd tea.Cmd
		m, cmd = m.closeOverlay(msg.kind)
		return m, tea.Batch(cmd, m.startTransfer(msg.kind, msg.path))

	case mountedMsg:
		return m.handleMounted(msg)

	case disconnectedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m.handleConnError(msg.err)

	case attachDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m.handleAttachDone(msg.err)

	case transferDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.transferring = false
		m.status = transferStatus(msg)
		return m, nil
	}

	if m.promptShown {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

// apply executes the UI side of controller effects in order.
func (m Model) apply(effects []session.Effect) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch eff := eff.(type) {
		case session.ShowPrompt:
			if !m.promptShown {
				var cmd tea.Cmd
				m.prompt, cmd = m.prompt.Reset()
				cmds = append(cmds, cmd)
				m.promptShown = true
			}
		case session.HidePrompt:
			m.promptShown = false
		case session.ShowValidation:
			m.prompt.SetError(eff.Message)
		case session.ShowNotice:
			m.notice = eff.Message
		case session.MountConnection:
			cmds = append(cmds, m.unmount())
			m.gen++
			m.phase = phaseConnecting
			m.status = "Connecting..."
			cmds = append(cmds, m.mountCmd(m.gen, eff.Credential))
		case session.UnmountConnection:
			cmds = append(cmds, m.unmount())
			m.gen++
			m.phase = phaseIdle
			m.status = ""
			m.transferring = false
		case session.StoreCredential, session.DeleteCredential:
			// Executed by the controller.
		}
	}
	return m, tea.Batch(cmds...)
}

// unmount drops the current connection and returns a command that closes it.
func (m *Model) unmount() tea.Cmd {
	conn := m.conn
	m.conn = nil
	m.connErr = nil
	m.sizeFlash = ""
	if conn == nil {
		return nil
	}
	return closeCmd(conn, m.log)
}

func closeCmd(conn *terminal.Conn, log *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		if err := conn.Close(); err != nil {
			log.Debug("failed to close connection", zap.Error(err))
		}
		return nil
	}
}

func (m Model) mountCmd(gen int, cred credential.Credential) tea.Cmd {
	params := terminal.Params{
		Endpoints:      m.cfg.Endpoints,
		Credential:     cred,
		Options:        m.cfg.Options,
		Columns:        m.width,
		Rows:           m.height,
		ScrollbackSize: m.cfg.ScrollbackSize,
		HTTPClient:     m.cfg.HTTPClient,
		Dialer:         m.cfg.Dialer,
		Logger:         m.log,
	}
	mount := m.cfg.Mount
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mountTimeout)
		defer cancel()
		conn, err := mount(ctx, params)
		return mountedMsg{gen: gen, conn: conn, err: err}
	}
}

func waitCmd(gen int, conn *terminal.Conn) tea.Cmd {
	return func() tea.Msg {
		<-conn.Done()
		return disconnectedMsg{gen: gen, err: conn.Err()}
	}
}

func (m Model) handleMounted(msg mountedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		if msg.conn != nil {
			return m, closeCmd(msg.conn, m.log)
		}
		return m, nil
	}
	if msg.err != nil {
		return m.handleConnError(msg.err)
	}

	m.conn = msg.conn
	m.phase = phaseConnected
	m.connErr = nil
	m.status = ""
	cmds := []tea.Cmd{waitCmd(m.gen, m.conn)}
	state := m.ctrl.State()
	if !state.Menu.MenuOpen && !state.Menu.UploadVisible && !state.Menu.DownloadVisible && m.notice == "" {
		cmds = append(cmds, m.attachCmd())
	}
	return m, tea.Batch(cmds...)
}

// handleConnError routes a connection failure: a rejected credential goes to
// the controller, anything else leaves the session alone and offers a
// reconnect.
func (m Model) handleConnError(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, terminal.ErrAuthFailed) {
		m.log.Info("connection rejected credentials")
		return m.apply(m.ctrl.HandleAuthFailure())
	}
	cmd := m.unmount()
	m.gen++
	m.phase = phaseDisconnected
	m.connErr = err
	m.transferring = false
	if errors.Is(err, terminal.ErrClosed) {
		m.status = "Connection closed."
	} else {
		m.status = "Connection lost: " + err.Error()
	}
	return m, cmd
}

func (m Model) attachCmd() tea.Cmd {
	if m.conn == nil {
		return nil
	}
	gen := m.gen
	sess := terminal.NewSession(m.conn, m.log)
	return tea.Exec(sess, func(err error) tea.Msg {
		return attachDoneMsg{gen: gen, err: err}
	})
}

func (m Model) handleAttachDone(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, terminal.ErrAttach) {
		m.log.Warn("attach failed", zap.Error(err))
		m.status = "Cannot attach: " + err.Error()
		return m, nil
	}
	if err != nil {
		return m.handleConnError(err)
	}
	var cmds []tea.Cmd
	if m.conn == nil {
		return m, nil
	}
	if title := m.conn.Title(); title != "" {
		cmds = append(cmds, tea.SetWindowTitle(title))
	}
	m, cmd := m.apply(m.ctrl.ToggleMenu(true))
	return m, tea.Batch(append(cmds, cmd)...)
}

func (m Model) reconnect() (tea.Model, tea.Cmd) {
	state := m.ctrl.State()
	if !state.Mounted() {
		return m, nil
	}
	return m.apply([]session.Effect{session.MountConnection{Credential: state.Credential}})
}

func (m Model) closeOverlay(kind transferKind) (Model, tea.Cmd) {
	if kind == transferUpload {
		return m.apply(m.ctrl.ToggleUpload(false))
	}
	return m.apply(m.ctrl.ToggleDownload(false))
}

func (m *Model) startTransfer(kind transferKind, path string) tea.Cmd {
	if m.conn == nil {
		m.status = "Not connected."
		return nil
	}
	if m.transferring {
		m.status = "A transfer is already running."
		return nil
	}
	m.transferring = true
	m.status = fmt.Sprintf("Starting %s of %s...", kind, path)

	gen := m.gen
	tr := terminal.NewTransfers(m.conn, m.cfg.DownloadDir, m.log)
	return func() tea.Msg {
		ctx := context.Background()
		if kind == transferUpload {
			return transferDoneMsg{gen: gen, kind: kind, target: path, err: tr.Upload(ctx, path)}
		}
		dir, err := tr.Download(ctx, path)
		return transferDoneMsg{gen: gen, kind: kind, target: dir, err: err}
	}
}

func transferStatus(msg transferDoneMsg) string {
	switch {
	case msg.err != nil:
		return fmt.Sprintf("The %s failed: %v", msg.kind, msg.err)
	case msg.kind == transferUpload:
		return "Uploaded " + msg.target + "."
	default:
		return "Download saved to " + msg.target + "."
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmQuit {
		switch {
		case key.Matches(msg, keys.Yes), key.Matches(msg, keys.Quit):
			return m.quit()
		case key.Matches(msg, keys.No):
			m.confirmQuit = false
		}
		return m, nil
	}

	if key.Matches(msg, keys.Quit) {
		if m.conn != nil && !m.cfg.Options.DisableLeaveAlert {
			m.confirmQuit = true
			return m, nil
		}
		return m.quit()
	}

	if m.notice != "" {
		if key.Matches(msg, keys.Confirm) || key.Matches(msg, keys.Cancel) {
			m.notice = ""
		}
		return m, nil
	}

	if m.promptShown {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	state := m.ctrl.State()
	switch {
	case state.Menu.UploadVisible:
		var cmd tea.Cmd
		m.upload, cmd = m.upload.Update(msg)
		return m, cmd
	case state.Menu.DownloadVisible:
		var cmd tea.Cmd
		m.download, cmd = m.download.Update(msg)
		return m, cmd
	case state.Status == session.Unauthenticated:
		return m.handleUnauthenticatedKey(msg)
	case state.Menu.MenuOpen:
		return m.handleMenuKey(msg)
	default:
		return m.handleMainKey(msg)
	}
}

func (m Model) handleUnauthenticatedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Login):
		return m.apply(m.ctrl.RequestLogin())
	case key.Matches(msg, keys.Clear):
		return m.apply(m.ctrl.ClearCredential())
	}
	return m, nil
}

func (m Model) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Upload):
		var applied, cmd tea.Cmd
		m, applied = m.apply(m.ctrl.ToggleUpload(true))
		m.upload, cmd = m.upload.open()
		return m, tea.Batch(applied, cmd)
	case key.Matches(msg, keys.Download):
		var applied, cmd tea.Cmd
		m, applied = m.apply(m.ctrl.ToggleDownload(true))
		m.download, cmd = m.download.open()
		return m, tea.Batch(applied, cmd)
	case key.Matches(msg, keys.Logout):
		return m.apply(m.ctrl.ClearCredential())
	case key.Matches(msg, keys.Menu), key.Matches(msg, keys.Cancel):
		return m.apply(m.ctrl.ToggleMenu(false))
	case key.Matches(msg, keys.Attach):
		var cmd tea.Cmd
		m, cmd = m.apply(m.ctrl.ToggleMenu(false))
		return m, tea.Batch(cmd, m.attachIfReady())
	}
	return m, nil
}

func (m Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Menu):
		return m.apply(m.ctrl.ToggleMenu(true))
	case key.Matches(msg, keys.Attach):
		return m, m.attachIfReady()
	case key.Matches(msg, keys.Recon):
		if m.phase == phaseDisconnected {
			return m.reconnect()
		}
	}
	return m, nil
}

func (m Model) attachIfReady() tea.Cmd {
	if m.phase != phaseConnected || m.transferring {
		return nil
	}
	return m.attachCmd()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	cmd := m.unmount()
	m.gen++
	return m, tea.Sequence(cmd, tea.Quit)
}
