// Package session owns the client's authentication state and credential
// lifecycle.
//
// Every operation is a pure transition Reduce(State, Event) (State, []Effect).
// The Controller wraps the reducer, executes the effects that touch the
// credential store and hands the full effect list back to the caller, which
// shows or hides the prompt, displays notices and mounts or unmounts the
// terminal connection.
package session

import "github.com/atinyakov/cloudtty/internal/credential"

// Status is the authentication status of the session.
type Status int

const (
	// Unauthenticated means no usable credential is held; the login prompt is
	// the only way forward.
	Unauthenticated Status = iota
	// Authenticated means a credential is held and the connection is mounted.
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// MenuState holds the auxiliary menu and transfer overlay flags.
type MenuState struct {
	MenuOpen        bool
	UploadVisible   bool
	DownloadVisible bool
}

// State is the complete controller state. It is a value: transitions return
// a new State and never mutate the one they were given.
type State struct {
	Status        Status
	Credential    credential.Credential
	PromptVisible bool
	Menu          MenuState
}

// Mounted reports whether the terminal connection should be mounted.
func (s State) Mounted() bool {
	return s.Status == Authenticated && !s.Credential.IsZero()
}

// Event is an input to Reduce.
type Event interface{ event() }

type (
	// Initialized carries the result of the one-time credential store lookup.
	Initialized struct {
		Stored credential.Credential
		Found  bool
	}
	// Submitted carries a raw username/password pair from the login prompt.
	Submitted struct {
		Username string
		Password string
	}
	// AuthFailed is raised by the terminal connection when the remote end
	// rejects the credential.
	AuthFailed struct{}
	// Cleared is the user asking to forget the stored credential, or
	// cancelling the login prompt.
	Cleared struct{}
	// LoginRequested is the user asking for the login prompt.
	LoginRequested struct{}
	// MenuToggled opens or closes the auxiliary menu.
	MenuToggled struct{ Open bool }
	// UploadToggled shows or hides the upload overlay.
	UploadToggled struct{ Visible bool }
	// DownloadToggled shows or hides the download overlay.
	DownloadToggled struct{ Visible bool }
)

func (Initialized) event()     {}
func (Submitted) event()       {}
func (AuthFailed) event()      {}
func (Cleared) event()         {}
func (LoginRequested) event()  {}
func (MenuToggled) event()     {}
func (UploadToggled) event()   {}
func (DownloadToggled) event() {}

// Effect is a side effect requested by a transition.
type Effect interface{ effect() }

type (
	// StoreCredential replaces the credential store slot.
	StoreCredential struct{ Credential credential.Credential }
	// DeleteCredential empties the credential store slot.
	DeleteCredential struct{}
	// ShowPrompt displays the login prompt.
	ShowPrompt struct{}
	// HidePrompt dismisses the login prompt.
	HidePrompt struct{}
	// ShowNotice displays a blocking notice the user has to acknowledge.
	ShowNotice struct{ Message string }
	// ShowValidation displays a message inside the login prompt.
	ShowValidation struct{ Message string }
	// MountConnection establishes the terminal connection with Credential.
	MountConnection struct{ Credential credential.Credential }
	// UnmountConnection tears the terminal connection down.
	UnmountConnection struct{}
)

func (StoreCredential) effect()   {}
func (DeleteCredential) effect()  {}
func (ShowPrompt) effect()        {}
func (HidePrompt) effect()        {}
func (ShowNotice) effect()        {}
func (ShowValidation) effect()    {}
func (MountConnection) effect()   {}
func (UnmountConnection) effect() {}
