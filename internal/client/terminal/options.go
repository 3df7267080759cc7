package terminal

// ClientOptions are the client-side switches that travel with a mounted
// connection.
type ClientOptions struct {
	// RendererType names the renderer the host terminal stands in for. It is
	// recorded in the logs only.
	RendererType string `json:"renderer_type"`
	// DisableLeaveAlert skips the confirmation when quitting with a live
	// connection.
	DisableLeaveAlert bool `json:"disable_leave_alert"`
	// DisableResizeOverlay suppresses the size notice shown on attach.
	DisableResizeOverlay bool `json:"disable_resize_overlay"`
	// TitleFixed, when set, replaces any title pushed by the server.
	TitleFixed string `json:"title_fixed"`
}

// DefaultClientOptions mirrors the web client defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{RendererType: "webgl"}
}

// Theme is the terminal colour scheme. The TUI chrome is styled from it; the
// remote output keeps the host terminal's own palette.
type Theme struct {
	Foreground    string `json:"foreground"`
	Background    string `json:"background"`
	Cursor        string `json:"cursor"`
	Black         string `json:"black"`
	Red           string `json:"red"`
	Green         string `json:"green"`
	Yellow        string `json:"yellow"`
	Blue          string `json:"blue"`
	Magenta       string `json:"magenta"`
	Cyan          string `json:"cyan"`
	White         string `json:"white"`
	BrightBlack   string `json:"brightBlack"`
	BrightRed     string `json:"brightRed"`
	BrightGreen   string `json:"brightGreen"`
	BrightYellow  string `json:"brightYellow"`
	BrightBlue    string `json:"brightBlue"`
	BrightMagenta string `json:"brightMagenta"`
	BrightCyan    string `json:"brightCyan"`
	BrightWhite   string `json:"brightWhite"`
}

// DefaultTheme is the dark scheme the web client ships with.
func DefaultTheme() Theme {
	return Theme{
		Foreground:    "#d2d2d2",
		Background:    "#2b2b2b",
		Cursor:        "#adadad",
		Black:         "#000000",
		Red:           "#d81e00",
		Green:         "#5ea702",
		Yellow:        "#cfae00",
		Blue:          "#427ab3",
		Magenta:       "#89658e",
		Cyan:          "#00a7aa",
		White:         "#dbded8",
		BrightBlack:   "#686a66",
		BrightRed:     "#f54235",
		BrightGreen:   "#99e343",
		BrightYellow:  "#fdeb61",
		BrightBlue:    "#84b0d8",
		BrightMagenta: "#bc94b7",
		BrightCyan:    "#37e6e8",
		BrightWhite:   "#f1f1f0",
	}
}
