// Package main starts the cloudtty terminal client.
package main

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/atinyakov/cloudtty/internal/client/session"
	"github.com/atinyakov/cloudtty/internal/client/store"
	"github.com/atinyakov/cloudtty/internal/client/terminal"
	"github.com/atinyakov/cloudtty/internal/client/ui"
	"github.com/atinyakov/cloudtty/internal/config"
	"github.com/atinyakov/cloudtty/internal/logger"
)

var (
	version   string
	buildDate string
)

func main() {
	opts, err := config.ParseClient(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.Version {
		fmt.Printf("cloudtty client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "cloudtty:", err)
		os.Exit(1)
	}
}

func run(opts *config.Client) error {
	sessionDir := cmp.Or(opts.SessionDir, store.SessionDir())
	if err := os.MkdirAll(sessionDir, 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	// The terminal owns stdout, so logs go to a file.
	log := logger.New()
	if err := log.Init(opts.LogLevel, cmp.Or(opts.LogFile, filepath.Join(sessionDir, "client.log"))); err != nil {
		return err
	}
	defer func() { _ = log.Log.Sync() }()

	endpoints, err := terminal.ParseEndpoints(opts.URL)
	if err != nil {
		return err
	}

	tlsCfg, err := terminal.LoadTLSConfig(opts.CA)
	if err != nil {
		return err
	}

	var st store.Store
	switch opts.Store {
	case "memory":
		st = store.NewMemoryStore()
	default:
		st = store.NewFileStore(sessionDir)
	}

	log.Log.Info("starting client",
		zap.String("ws", endpoints.WS),
		zap.String("store", opts.Store),
		zap.String("renderer", opts.RendererType),
	)

	model, err := ui.New(ui.Config{
		Controller:     session.NewController(st, log.Log),
		Endpoints:      endpoints,
		Options:        opts.ClientOptions(),
		Theme:          opts.Theme,
		HTTPClient:     terminal.NewHTTPClient(tlsCfg),
		Dialer:         terminal.NewDialer(tlsCfg),
		DownloadDir:    opts.DownloadDir,
		ScrollbackSize: opts.Scrollback,
		Logger:         log.Log,
	})
	if err != nil {
		return err
	}

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
