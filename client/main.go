package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/burntcarrot/nvspad/client/table"
	"github.com/burntcarrot/nvspad/commons"
	"github.com/burntcarrot/nvspad/config"
	"github.com/burntcarrot/nvspad/editsync"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func main() {
	// Parse flags.
	flags := parseFlags()

	cfg, err := loadConfig(flags)
	if err != nil {
		color.Red("Config error, exiting: %s", err)
		os.Exit(1)
	}

	logFile, debugLogFile, err := setupLogger(logger, cfg)
	if err != nil {
		color.Red("Logger error, exiting: %s", err)
		os.Exit(1)
	}
	defer closeLogFiles(logFile, debugLogFile)

	// The same ID is used for edits and for the change feed, so that the server does not echo our own edits.
	clientID := uuid.New()
	poster := editsync.NewHTTPPoster(baseURL(cfg), editsync.WithClientID(clientID), editsync.WithTimeout(cfg.Timeout))
	loader := listingLoader{poster: poster, path: listingPath(cfg.Endpoint, cfg.Namespace)}

	logger.WithFields(logrus.Fields{"server": cfg.Server, "client": clientID}).Info("starting nvspad")

	if args := flag.Args(); len(args) > 0 && args[0] == "set" {
		if !runSet(cfg, poster, loader, args[1:]) {
			os.Exit(1)
		}
		return
	}

	syncer := editsync.New(editsync.Config{Base: cfg.Endpoint, Poster: poster, Logger: logger})

	title := fmt.Sprintf("nvspad @ %s", cfg.Server)
	if cfg.Namespace != "" {
		title += " / " + cfg.Namespace
	}

	m := table.New(table.Config{Sync: syncer, Loader: loader, Positional: cfg.Positional, Title: title})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if cfg.Watch {
		conn, err := createConn(cfg, clientID)
		if err != nil {
			color.Red("Connection error, exiting: %s", err)
			logger.Errorf("failed to subscribe to change feed: %v", err)
			os.Exit(1)
		}
		defer conn.Close()

		go watch(getMsgChan(conn, logger), cfg.Namespace, p, logger)
	}

	if err := p.Start(); err != nil {
		logger.Errorf("UI error: %v", err)
		color.Red("UI error, exiting: %s", err)
		os.Exit(1)
	}
}

// runSet commits each [namespace/]key=value argument and reports the outcome on stdout.
// It returns false if any edit failed.
func runSet(cfg config.Client, poster *editsync.HTTPPoster, loader listingLoader, args []string) bool {
	if len(args) == 0 {
		color.Red("Nothing to set: expected [namespace/]key=value arguments")
		return false
	}

	presenter := &consolePresenter{
		reload: func() (commons.Listing, error) {
			return loader.Load(context.Background())
		},
	}
	syncer := editsync.New(editsync.Config{Base: cfg.Endpoint, Poster: poster, Presenter: presenter, Logger: logger})

	ok := true
	for _, arg := range args {
		f, err := parseAssignment(arg)
		if err != nil {
			color.Red("%s", err)
			ok = false
			continue
		}
		if f.Namespace == "" {
			f.Namespace = cfg.Namespace
		}
		syncer.SubmitEdit(f)
	}

	// Edits are independent; wait for all of them to be answered.
	syncer.Wait()

	return ok && !presenter.Failed()
}
