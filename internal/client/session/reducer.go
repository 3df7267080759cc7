package session

import (
	"errors"
	"strings"

	"github.com/atinyakov/cloudtty/internal/credential"
)

// User-visible messages produced by transitions.
const (
	MsgEmptyFields    = "Please enter both username and password."
	MsgReservedColon  = "Username must not contain \":\"."
	MsgAuthFailed     = "Authentication failed. Please check your username and password."
	msgEncodingFailed = "Could not encode credentials."
)

// Reduce applies ev to s and returns the next state together with the effects
// the transition requires. Events that are not legal in the current state
// return s unchanged and no effects.
func Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Initialized:
		if ev.Found && !ev.Stored.IsZero() {
			s.Status = Authenticated
			s.Credential = ev.Stored
			s.PromptVisible = false
			return s, []Effect{MountConnection{Credential: ev.Stored}}
		}
		s.Status = Unauthenticated
		s.Credential = ""
		s.PromptVisible = true
		return s, []Effect{ShowPrompt{}}

	case Submitted:
		if s.Status == Authenticated {
			return s, nil
		}
		username := strings.TrimSpace(ev.Username)
		password := strings.TrimSpace(ev.Password)
		if username == "" || password == "" {
			return reject(s, MsgEmptyFields)
		}
		cred, err := credential.Encode(username, password)
		if err != nil {
			if errors.Is(err, credential.ErrReservedSeparator) {
				return reject(s, MsgReservedColon)
			}
			return reject(s, msgEncodingFailed)
		}
		s.Status = Authenticated
		s.Credential = cred
		s.PromptVisible = false
		return s, []Effect{
			StoreCredential{Credential: cred},
			HidePrompt{},
			MountConnection{Credential: cred},
		}

	case AuthFailed:
		next, effects := logout(s)
		return next, append([]Effect{ShowNotice{Message: MsgAuthFailed}}, effects...)

	case Cleared:
		return logout(s)

	case LoginRequested:
		if s.Status == Authenticated {
			return s, nil
		}
		s.PromptVisible = true
		return s, []Effect{ShowPrompt{}}

	case MenuToggled:
		s.Menu.MenuOpen = ev.Open
		return s, nil

	case UploadToggled:
		s.Menu.UploadVisible = ev.Visible
		s.Menu.MenuOpen = false
		return s, nil

	case DownloadToggled:
		s.Menu.DownloadVisible = ev.Visible
		s.Menu.MenuOpen = false
		return s, nil
	}
	return s, nil
}

func reject(s State, msg string) (State, []Effect) {
	s.PromptVisible = true
	return s, []Effect{ShowValidation{Message: msg}, ShowPrompt{}}
}

// logout drops the credential and returns to the prompt. The status flag and
// the credential change together.
func logout(s State) (State, []Effect) {
	s.Status = Unauthenticated
	s.Credential = ""
	s.PromptVisible = true
	return s, []Effect{DeleteCredential{}, UnmountConnection{}, ShowPrompt{}}
}
