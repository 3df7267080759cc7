package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Login    key.Binding
	Clear    key.Binding
	Attach   key.Binding
	Menu     key.Binding
	Upload   key.Binding
	Download key.Binding
	Logout   key.Binding
	Recon    key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
	Yes      key.Binding
	No       key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Login:    key.NewBinding(key.WithKeys("l", "enter"), key.WithHelp("l", "login")),
	Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear stored credentials")),
	Attach:   key.NewBinding(key.WithKeys("enter", "a"), key.WithHelp("Enter", "attach")),
	Menu:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "menu")),
	Upload:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
	Download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
	Logout:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear credentials")),
	Recon:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reconnect")),
	Confirm:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "ok")),
	Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "close")),
	Yes:      key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "leave")),
	No:       key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "stay")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("Ctrl-C", "quit")),
}

// helpLine renders bindings as "key: desc" pairs.
func helpLine(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += " | "
		}
		h := b.Help()
		out += h.Key + ": " + h.Desc
	}
	return out
}
