package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/syntopia/go-syntopia-client/api"
	"github.com/syntopia/go-syntopia-client/auth"
	"github.com/syntopia/go-syntopia-client/consciousness"
	"github.com/syntopia/go-syntopia-client/contributing"
	"github.com/syntopia/go-syntopia-client/internal/config"
	"github.com/syntopia/go-syntopia-client/store"
	"github.com/syntopia/go-syntopia-client/store/cryptostore"
	"github.com/syntopia/go-syntopia-client/store/filestore"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	application := &app{}
	return application.rootCmd().Execute()
}

// app wires configuration, persistence and the platform clients together.
// Construction happens in initialize, after cobra has parsed flags.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	client  *api.Client
	manager *auth.Manager
	tracker *contributing.Tracker
	monitor *consciousness.Monitor
	verbose bool
}

func (a *app) initialize() error {
	a.cfg = config.New()

	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	sessionStore, err := a.openStore()
	if err != nil {
		return err
	}

	a.client = api.New(a.cfg.GetAPIBaseURL(),
		api.WithTimeout(a.cfg.GetHTTPTimeout()),
		api.WithLogger(a.logger))

	a.manager, err = auth.NewManager(a.client, sessionStore, auth.WithLogger(a.logger))
	if err != nil {
		return err
	}

	trackerOptions := []contributing.TrackerOption{contributing.WithLogger(a.logger)}
	if clientID := a.cfg.GetGitHubClientID(); clientID != "" {
		oauth, err := contributing.NewGitHubOAuth(clientID, a.cfg.GetGitHubRedirectURI())
		if err != nil {
			return err
		}
		trackerOptions = append(trackerOptions, contributing.WithGitHubOAuth(oauth))
	}
	a.tracker, err = contributing.NewTracker(a.client, trackerOptions...)
	if err != nil {
		return err
	}

	a.monitor, err = consciousness.NewMonitor(sessionStore,
		consciousness.WithClient(a.client),
		consciousness.WithLogger(a.logger))
	return err
}

// openStore builds the session store, encrypted when a passphrase is
// configured.
func (a *app) openStore() (store.Store, error) {
	fileStore, err := filestore.New(a.cfg.GetDataDir())
	if err != nil {
		return nil, err
	}
	passphrase := a.cfg.GetStorePassphrase()
	if passphrase == "" {
		return fileStore, nil
	}
	return cryptostore.New(fileStore, passphrase)
}

func (a *app) displayAppName() {
	banner := figure.NewFigure(a.cfg.GetAppName(), "cybermedium", true)
	banner.Print()
	fmt.Println()
}
