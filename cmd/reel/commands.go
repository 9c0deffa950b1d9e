package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/player"
	"github.com/mmcdole/reel/internal/syncer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

var errUsage = errors.New("invalid arguments, run reel -h for usage")

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "libraries":
		items, err := a.repo.GetLibraries(ctx)
		if err != nil {
			return err
		}
		a.printItems("Libraries", items)

	case "items":
		parentID, err := parseID(args, 0)
		if err != nil {
			return err
		}
		a.printHeader("Items")
		pager := a.repo.GetItemsPaging(domain.ItemQuery{ParentID: parentID, SortBy: domain.SortByName, SortOrder: domain.SortAscending})
		for item, err := range pager.All(ctx) {
			if err != nil {
				return err
			}
			a.printItem(item)
		}

	case "item":
		itemID, err := parseID(args, 0)
		if err != nil {
			return err
		}
		item, err := a.repo.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		a.printDetail(item)

	case "seasons":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		offline := fs.Bool("offline", false, "read from the local cache only")
		if err := fs.Parse(args); err != nil {
			return err
		}
		seriesID, err := parseID(fs.Args(), 0)
		if err != nil {
			return err
		}
		seasons, err := a.repo.GetSeasons(ctx, seriesID, *offline)
		if err != nil {
			return err
		}
		a.printItems("Seasons", seasons)

	case "episodes":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		offline := fs.Bool("offline", false, "read from the local cache only")
		if err := fs.Parse(args); err != nil {
			return err
		}
		seriesID, err := parseID(fs.Args(), 0)
		if err != nil {
			return err
		}
		seasonID, err := parseID(fs.Args(), 1)
		if err != nil {
			return err
		}
		episodes, err := a.repo.GetEpisodes(ctx, domain.EpisodeQuery{SeriesID: seriesID, SeasonID: seasonID}, *offline)
		if err != nil {
			return err
		}
		a.printItems("Episodes", episodes)

	case "sources":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		paths := fs.Bool("paths", false, "include server file paths")
		if err := fs.Parse(args); err != nil {
			return err
		}
		itemID, err := parseID(fs.Args(), 0)
		if err != nil {
			return err
		}
		sources, err := a.repo.GetMediaSources(ctx, itemID, *paths)
		if err != nil {
			return err
		}
		a.printSources(sources)

	case "stream":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		bitrate := fs.Int("bitrate", domain.AutoBitrate, "video bitrate, 1 for adaptive")
		if err := fs.Parse(args); err != nil {
			return err
		}
		itemID, err := parseID(fs.Args(), 0)
		if err != nil {
			return err
		}
		if fs.NArg() < 2 {
			return errUsage
		}
		playSessionID := strings.ReplaceAll(uuid.NewString(), "-", "")
		url := a.repo.GetTranscodedVideoStream(itemID, a.repo.DeviceID(), fs.Arg(1), playSessionID, *bitrate)
		if url == "" {
			return errors.New("could not build a stream url")
		}
		fmt.Fprintln(a.out, url)

	case "play":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		transcode := fs.Bool("transcode", false, "always request a transcoded stream")
		bitrate := fs.Int("bitrate", a.cfg.Playback.MaxBitrate, "video bitrate when transcoding, 1 for adaptive")
		fromStart := fs.Bool("from-start", false, "ignore the resume position")
		if err := fs.Parse(args); err != nil {
			return err
		}
		itemID, err := parseID(fs.Args(), 0)
		if err != nil {
			return err
		}
		return a.play(ctx, itemID, *transcode, *bitrate, *fromStart)

	case "favorite", "unfavorite", "played", "unplayed":
		itemID, err := parseID(args, 0)
		if err != nil {
			return err
		}
		mutations := map[string]func(context.Context, uuid.UUID) error{
			"favorite":   a.repo.MarkAsFavorite,
			"unfavorite": a.repo.UnmarkAsFavorite,
			"played":     a.repo.MarkAsPlayed,
			"unplayed":   a.repo.MarkAsUnplayed,
		}
		if err := mutations[cmd](ctx, itemID); err != nil {
			return err
		}
		a.printMutation(itemID)

	case "stop":
		itemID, err := parseID(args, 0)
		if err != nil {
			return err
		}
		if len(args) < 3 {
			return errUsage
		}
		ticks, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid position: %w", err)
		}
		percent, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid percentage: %w", err)
		}
		if err := a.repo.PostPlaybackStop(ctx, itemID, ticks, percent); err != nil {
			return err
		}
		a.printMutation(itemID)

	case "segments":
		itemID, err := parseID(args, 0)
		if err != nil {
			return err
		}
		a.printHeader("Segments")
		for _, s := range a.repo.GetSegments(ctx, itemID) {
			fmt.Fprintf(a.out, "%-8s %s\n", AccentStyle.Render(s.Type.String()),
				fmt.Sprintf("%s - %s", formatSeconds(s.StartTime), formatSeconds(s.EndTime)))
		}

	case "search":
		if len(args) == 0 {
			return errUsage
		}
		items, err := a.repo.GetSearchItems(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		a.printItems("Results", items)

	case "resume":
		items, err := a.repo.GetResumeItems(ctx)
		if err != nil {
			return err
		}
		a.printItems("Continue Watching", items)

	case "nextup":
		var seriesID uuid.UUID
		if len(args) > 0 {
			id, err := parseID(args, 0)
			if err != nil {
				return err
			}
			seriesID = id
		}
		items, err := a.repo.GetNextUp(ctx, seriesID)
		if err != nil {
			return err
		}
		a.printItems("Next Up", items)

	case "downloads":
		items, err := a.repo.GetDownloads(ctx)
		if err != nil {
			return err
		}
		a.printItems("Downloads", items)

	case "sync":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		metricsAddr := fs.String("metrics", "", "serve prometheus metrics on this address")
		once := fs.Bool("once", false, "run a single pass and exit")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return a.runSync(ctx, *metricsAddr, *once)

	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
	return nil
}

// play resolves the best source for an item and hands it to the external player
func (a *app) play(ctx context.Context, itemID uuid.UUID, transcode bool, bitrate int, fromStart bool) error {
	item, err := a.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !item.Playable() {
		return fmt.Errorf("%s is not playable: %w", item.Kind, domain.ErrUnexpectedKind)
	}

	sources, err := a.repo.GetMediaSources(ctx, itemID, false)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no media sources for %s", item.Name)
	}

	var target string
	for _, src := range sources {
		if src.Origin == domain.SourceLocal && src.Downloaded && src.Path != "" {
			target = src.Path
			break
		}
	}
	if target == "" {
		src := sources[0]
		playSessionID := strings.ReplaceAll(uuid.NewString(), "-", "")
		if src.SupportsDirectPlay && !transcode {
			target = a.repo.GetStreamURL(itemID, src.ID, playSessionID)
		} else {
			target = a.repo.GetTranscodedVideoStream(itemID, a.repo.DeviceID(), src.ID, playSessionID, bitrate)
		}
		if target == "" {
			return errors.New("could not build a stream url")
		}
		if err := a.repo.PostPlaybackStart(ctx, itemID); err != nil {
			a.logger.Warn("failed to report playback start", "itemID", itemID, "error", err)
		}
	}

	var offset time.Duration
	if !fromStart {
		offset = domain.TicksToDuration(item.UserData.PlaybackPositionTicks)
	}

	launcher := player.NewLauncher(a.cfg.Player.Command, a.cfg.Player.Args, a.cfg.Player.StartFlag, a.logger)
	name, err := launcher.Launch(target, offset)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Playing %s in %s\n", SuccessStyle.Render("▶"), TitleStyle.Render(item.Name), name)
	return nil
}

// runSync runs the reconciler under a supervisor until ctx is canceled
func (a *app) runSync(ctx context.Context, metricsAddr string, once bool) error {
	s := syncer.New(a.remote, a.store, a.cfg, a.cfg.Sync.Interval, a.logger)

	if once {
		res, err := s.SyncOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %d pending, %d synced, %d failed\n",
			SuccessStyle.Render("✓"), res.Pending, res.Cleared, res.Failed)
		return nil
	}

	handler := &sutureslog.Handler{Logger: a.logger}
	sup := suture.New("reel", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	sup.Add(s)

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	fmt.Fprintf(a.out, "%s syncing every %s, press Ctrl+C to stop\n", AccentStyle.Render("⟳"), a.cfg.Sync.Interval)
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func parseID(args []string, i int) (uuid.UUID, error) {
	if len(args) <= i {
		return uuid.Nil, errUsage
	}
	id, err := uuid.Parse(args[i])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", args[i], err)
	}
	return id, nil
}
