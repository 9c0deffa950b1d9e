package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmcdole/reel/internal/config"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/jellyfin"
	"github.com/mmcdole/reel/internal/logging"
	"github.com/mmcdole/reel/internal/profile"
	"github.com/mmcdole/reel/internal/repository"
	"github.com/mmcdole/reel/internal/store"
	"github.com/mmcdole/reel/internal/trickplay"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `usage: reel [-version] <command> [args]

commands:
  login                               authenticate against a Jellyfin server
  logout                              forget the stored credentials
  libraries                           list media libraries
  items <parentID>                    list items under a library or folder
  item <id>                           show one item
  seasons [-offline] <seriesID>       list seasons of a series
  episodes [-offline] <seriesID> <seasonID>
                                      list episodes of a season
  sources [-paths] <id>               list media sources of an item
  stream [-bitrate N] <id> <sourceID> print a transcoded stream URL
  play [-transcode] [-bitrate N] [-from-start] <id>
                                      play an item in the external player
  favorite|unfavorite <id>            change the favourite flag
  played|unplayed <id>                change the played flag
  stop <id> <positionTicks> <percent> record a playback stop
  segments <id>                       list intro and credits segments
  search <query>                      search the library
  resume                              list items to continue watching
  nextup [seriesID]                   list the next episodes to watch
  downloads                           list downloaded items
  sync [-once] [-metrics addr]        reconcile pending changes in the background
`

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if showVersion {
		fmt.Printf("reel %s\n", Version)
		return
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: "+err.Error()))
		if errors.Is(err, domain.ErrAuthFailed) {
			fmt.Fprintln(os.Stderr, DimStyle.Render("Run `reel login` to sign in again."))
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.EnsureDeviceID() {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save device id: %w", err)
		}
	}

	logger, logFile, err := logging.Setup(cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = logging.Null()
		logFile = nil
	}
	if logFile != nil {
		defer logFile.Close()
	}
	slog.SetDefault(logger)
	logger.Info("starting reel", "version", Version, "command", args[0])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "login":
		return runLogin(ctx, cfg, logger)
	case "logout":
		cfg.ClearServer()
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("✓ Logged out"))
		return nil
	}

	if !cfg.IsConfigured() {
		return fmt.Errorf("not logged in: %w", domain.ErrAuthFailed)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.dispatch(ctx, args[0], args[1:])
}

// app holds the wired data layer for one command
type app struct {
	cfg    *config.Config
	remote domain.RemoteClient
	store  *store.Store
	repo   *repository.Repository
	out    io.Writer
	logger *slog.Logger
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	sess, err := cfg.Session()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Storage.CacheDir, sess.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	device := jellyfin.Device{ID: sess.DeviceID, Name: sess.DeviceName}
	remote := jellyfin.NewClient(sess.BaseURL, sess.AccessToken, sess.UserID, device, logger)
	negotiator := profile.NewNegotiator(remote, cfg.Playback.TranscodeCodec, logger)
	tiles := trickplay.NewCache(nil, cfg.Storage.TrickplayDir, logger)

	repo := repository.New(remote, st, negotiator, tiles, cfg, cfg.Workers.IOPoolSize, logger)
	return &app{
		cfg:    cfg,
		remote: remote,
		store:  st,
		repo:   repo,
		out:    os.Stdout,
		logger: logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
