// Package config provides functionality for managing configuration options
// for the client and the gateway using command-line flags, a JSON config
// file and environment variables.
//
// Values are layered: flag defaults, then the config file, then CLOUDTTY_*
// environment variables, then flags given explicitly on the command line.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/atinyakov/cloudtty/internal/client/terminal"
)

// EnvPrefix prefixes every environment override, e.g. CLOUDTTY_URL.
const EnvPrefix = "CLOUDTTY"

// Duration is a time.Duration that reads "1m30s" style strings from JSON and
// the environment.
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.Decode(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	d.Duration = time.Duration(n)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	v, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Client holds the configuration of the terminal client.
type Client struct {
	// URL is the page address of the terminal, e.g. https://host/term/.
	URL string `json:"url" envconfig:"URL"`
	// Store selects the credential store backend: "file" or "memory".
	Store string `json:"store" envconfig:"STORE"`
	// SessionDir holds the credential file and the default log file.
	SessionDir string `json:"session_dir" envconfig:"SESSION_DIR"`
	// CA is a PEM file with the CA that signed the gateway certificate.
	CA string `json:"ca" envconfig:"CA"`
	// DownloadDir receives downloaded files.
	DownloadDir string `json:"download_dir" envconfig:"DOWNLOAD_DIR"`
	// Scrollback bounds the output kept for replay, in bytes.
	Scrollback int `json:"scrollback" envconfig:"SCROLLBACK"`
	// LogLevel and LogFile configure logging; the log file defaults to
	// client.log in the session directory.
	LogLevel string `json:"log_level" envconfig:"LOG_LEVEL"`
	LogFile  string `json:"log_file" envconfig:"LOG_FILE"`

	RendererType         string `json:"renderer_type" envconfig:"RENDERER_TYPE"`
	DisableLeaveAlert    bool   `json:"disable_leave_alert" envconfig:"DISABLE_LEAVE_ALERT"`
	DisableResizeOverlay bool   `json:"disable_resize_overlay" envconfig:"DISABLE_RESIZE_OVERLAY"`
	TitleFixed           string `json:"title_fixed" envconfig:"TITLE_FIXED"`

	// Theme is read from the config file only.
	Theme terminal.Theme `json:"theme" ignored:"true"`

	// Config is the path to the config file.
	Config string `json:"-" ignored:"true"`
	// Version asks the binary to print its build information and exit.
	Version bool `json:"-" ignored:"true"`
}

// ClientOptions returns the options carried by a mounted connection.
func (c *Client) ClientOptions() terminal.ClientOptions {
	return terminal.ClientOptions{
		RendererType:         c.RendererType,
		DisableLeaveAlert:    c.DisableLeaveAlert,
		DisableResizeOverlay: c.DisableResizeOverlay,
		TitleFixed:           c.TitleFixed,
	}
}

// Server holds the configuration of the gateway.
type Server struct {
	// Cmd selects the action: "serve" or "useradd".
	Cmd string `json:"-" ignored:"true"`
	// Login and Password are the account for useradd.
	Login    string `json:"-" ignored:"true"`
	Password string `json:"-" ignored:"true"`

	// Addr defines the server's listening address (ip:port).
	Addr string `json:"addr" envconfig:"ADDR"`
	// DatabaseDSN holds the database connection string.
	DatabaseDSN string `json:"database_dsn" envconfig:"DATABASE_DSN"`
	// BasePath is the URL path the terminal is served under.
	BasePath string `json:"base_path" envconfig:"BASE_PATH"`
	// Command is the program started for each connection.
	Command string `json:"command" envconfig:"COMMAND"`
	// Title overrides the window title sent to clients.
	Title string `json:"title" envconfig:"TITLE"`
	// TokenTTL bounds how long an issued token may wait for its websocket.
	TokenTTL Duration `json:"token_ttl" envconfig:"TOKEN_TTL"`
	// CleanupInterval is the period of the expired token cleaner.
	CleanupInterval Duration `json:"cleanup_interval" envconfig:"CLEANUP_INTERVAL"`
	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" envconfig:"TLS_CERT"`
	TLSKey  string `json:"tls_key" envconfig:"TLS_KEY"`
	// LogLevel is the minimum level logged.
	LogLevel string `json:"log_level" envconfig:"LOG_LEVEL"`
	// Preferences is forwarded verbatim to each client after the handshake.
	Preferences map[string]any `json:"client_options" ignored:"true"`

	// Config is the path to the config file.
	Config string `json:"-" ignored:"true"`
	// Version asks the binary to print its build information and exit.
	Version bool `json:"-" ignored:"true"`
}

// ParseClient builds the client configuration from args, which excludes the
// program name.
func ParseClient(args []string) (*Client, error) {
	opts := &Client{Theme: terminal.DefaultTheme()}

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&opts.URL, "url", "http://localhost:7681/", "terminal page url")
	fs.StringVar(&opts.Store, "store", "file", "credential store: file or memory")
	fs.StringVar(&opts.SessionDir, "session-dir", "", "directory for session state (default $XDG_RUNTIME_DIR/cloudtty)")
	fs.StringVar(&opts.CA, "ca", "", "CA certificate used to verify the gateway")
	fs.StringVar(&opts.DownloadDir, "download-dir", ".", "directory for downloaded files")
	fs.IntVar(&opts.Scrollback, "scrollback", 256*1024, "bytes of output kept for replay")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&opts.LogFile, "log-file", "", "log file (default <session-dir>/client.log)")
	fs.StringVar(&opts.RendererType, "renderer-type", terminal.DefaultClientOptions().RendererType, "renderer type reported in logs")
	fs.BoolVar(&opts.DisableLeaveAlert, "disable-leave-alert", false, "quit without confirmation")
	fs.BoolVar(&opts.DisableResizeOverlay, "disable-resize-overlay", false, "do not show the terminal size on resize")
	fs.StringVar(&opts.TitleFixed, "title-fixed", "", "fixed window title")
	fs.StringVar(&opts.Config, "config", "", "path to config file")
	fs.StringVar(&opts.Config, "c", "", "path to config file (shorthand)")
	fs.BoolVar(&opts.Version, "version", false, "print version and exit")

	if err := layer(fs, args, opts, &opts.Config); err != nil {
		return nil, err
	}
	if opts.Store != "file" && opts.Store != "memory" {
		return nil, fmt.Errorf("unknown store %q", opts.Store)
	}
	return opts, nil
}

// ParseServer builds the gateway configuration from args, which excludes the
// program name.
func ParseServer(args []string) (*Server, error) {
	opts := &Server{}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&opts.Cmd, "cmd", "serve", "action: serve or useradd")
	fs.StringVar(&opts.Login, "login", "", "login for useradd")
	fs.StringVar(&opts.Password, "password", "", "password for useradd")
	fs.StringVar(&opts.Addr, "a", "localhost:7681", "run on ip:port server")
	fs.StringVar(&opts.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&opts.BasePath, "base-path", "/", "url path the terminal is served under")
	fs.StringVar(&opts.Command, "command", "/bin/sh", "program started for each connection")
	fs.StringVar(&opts.Title, "title", "", "window title sent to clients")
	fs.DurationVar(&opts.TokenTTL.Duration, "token-ttl", time.Minute, "lifetime of an issued token")
	fs.DurationVar(&opts.CleanupInterval.Duration, "cleanup-interval", time.Minute, "expired token cleanup period")
	fs.StringVar(&opts.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&opts.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&opts.Config, "config", "", "path to config file")
	fs.StringVar(&opts.Config, "c", "", "path to config file (shorthand)")
	fs.BoolVar(&opts.Version, "version", false, "print version and exit")

	if err := layer(fs, args, opts, &opts.Config); err != nil {
		return nil, err
	}

	// SERVER_ADDRESS predates the prefixed variables and is still honoured.
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" && !isSet(fs, "a") {
		opts.Addr = addr
	}

	switch opts.Cmd {
	case "serve":
	case "useradd":
		if opts.Login == "" || opts.Password == "" {
			return nil, errors.New("useradd requires -login and -password")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", opts.Cmd)
	}
	if (opts.TLSCert == "") != (opts.TLSKey == "") {
		return nil, errors.New("tls-cert and tls-key must be set together")
	}
	if opts.TokenTTL.Duration <= 0 {
		return nil, errors.New("token-ttl must be positive")
	}
	if opts.CleanupInterval.Duration <= 0 {
		return nil, errors.New("cleanup-interval must be positive")
	}
	if !strings.HasPrefix(opts.BasePath, "/") {
		opts.BasePath = "/" + opts.BasePath
	}
	return opts, nil
}

// layer parses args into fs and applies the config file and the environment
// on top of the defaults. Flags set on the command line are re-applied last.
func layer(fs *flag.FlagSet, args []string, opts any, configPath *string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

	if p := os.Getenv("CONFIG"); p != "" && !isSet(fs, "config") && !isSet(fs, "c") {
		*configPath = p
	}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return fmt.Errorf("error while reading config file: %w", err)
		}
		if err := json.Unmarshal(data, opts); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, opts); err != nil {
		return fmt.Errorf("error while reading environment: %w", err)
	}

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
