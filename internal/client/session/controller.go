package session

import (
	"errors"

	"go.uber.org/zap"

	"github.com/atinyakov/cloudtty/internal/client/store"
)

// ErrAlreadyInitialized is returned by a second call to Initialize.
var ErrAlreadyInitialized = errors.New("session: already initialized")

// Controller is the single authority over State. It runs every transition
// through Reduce and executes the store effects itself.
//
// A Controller is driven from one event loop and is not safe for concurrent
// use.
type Controller struct {
	store       store.Store
	log         *zap.Logger
	state       State
	initialized bool
}

// NewController returns a controller in the Unauthenticated state. Call
// Initialize before anything else.
func NewController(s store.Store, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{store: s, log: log}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

// Initialize reads the credential store once and either adopts the stored
// credential or asks for the prompt. A store read error is logged and treated
// as an empty store.
func (c *Controller) Initialize() ([]Effect, error) {
	if c.initialized {
		return nil, ErrAlreadyInitialized
	}
	c.initialized = true

	cred, ok, err := c.store.Get()
	if err != nil {
		c.log.Warn("failed to read stored credential", zap.Error(err))
		cred, ok = "", false
	}
	return c.dispatch(Initialized{Stored: cred, Found: ok}), nil
}

// SubmitCredential handles a username/password pair from the login prompt.
func (c *Controller) SubmitCredential(username, password string) []Effect {
	return c.dispatch(Submitted{Username: username, Password: password})
}

// HandleAuthFailure handles the connection's authentication-failure signal.
func (c *Controller) HandleAuthFailure() []Effect {
	return c.dispatch(AuthFailed{})
}

// ClearCredential forgets the stored credential and returns to the prompt.
func (c *Controller) ClearCredential() []Effect {
	return c.dispatch(Cleared{})
}

// CancelPrompt handles the user dismissing the login prompt. The session
// cannot continue without a credential, so the prompt is shown again.
func (c *Controller) CancelPrompt() []Effect {
	return c.dispatch(Cleared{})
}

// RequestLogin shows the login prompt from the unauthenticated view.
func (c *Controller) RequestLogin() []Effect {
	return c.dispatch(LoginRequested{})
}

// ToggleMenu opens or closes the auxiliary menu.
func (c *Controller) ToggleMenu(open bool) []Effect {
	return c.dispatch(MenuToggled{Open: open})
}

// ToggleUpload shows or hides the upload overlay and closes the menu.
func (c *Controller) ToggleUpload(visible bool) []Effect {
	return c.dispatch(UploadToggled{Visible: visible})
}

// ToggleDownload shows or hides the download overlay and closes the menu.
func (c *Controller) ToggleDownload(visible bool) []Effect {
	return c.dispatch(DownloadToggled{Visible: visible})
}

func (c *Controller) dispatch(ev Event) []Effect {
	prev := c.state.Status
	next, effects := Reduce(c.state, ev)
	c.state = next

	for _, eff := range effects {
		switch eff := eff.(type) {
		case StoreCredential:
			if err := c.store.Set(eff.Credential); err != nil {
				c.log.Warn("failed to store credential", zap.Error(err))
			}
		case DeleteCredential:
			if err := c.store.Delete(); err != nil {
				c.log.Warn("failed to delete stored credential", zap.Error(err))
			}
		}
	}

	if prev != next.Status {
		c.log.Info("session status changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", next.Status),
		)
	}
	return effects
}
