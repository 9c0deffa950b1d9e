package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

func (a *app) printHeader(title string) {
	fmt.Fprintln(a.out, HeaderStyle.Render(title))
}

func (a *app) printItems(title string, items []domain.Item) {
	a.printHeader(title)
	if len(items) == 0 {
		fmt.Fprintln(a.out, DimStyle.Render("  (none)"))
		return
	}
	for _, item := range items {
		a.printItem(item)
	}
}

func (a *app) printItem(item domain.Item) {
	name := item.Name
	if code := item.EpisodeCode(); code != "" {
		name = code + " " + name
	}
	if item.ProductionYear > 0 && item.Kind == domain.KindMovie {
		name = fmt.Sprintf("%s (%d)", name, item.ProductionYear)
	}

	fmt.Fprintf(a.out, "%s %s %s %s\n",
		statusIndicator(item.UserData),
		TitleStyle.Render(name),
		SubtitleStyle.Render(item.Kind.String()),
		DimStyle.Render(item.ID.String()))
}

func (a *app) printDetail(item domain.Item) {
	a.printItem(item)
	if item.Overview != "" {
		fmt.Fprintln(a.out, SubtitleStyle.Render(item.Overview))
	}
	if rt := item.RunTime(); rt > 0 {
		fmt.Fprintf(a.out, "Runtime: %s\n", rt.Round(1e9))
	}
	if len(item.Genres) > 0 {
		fmt.Fprintf(a.out, "Genres:  %s\n", strings.Join(item.Genres, ", "))
	}
	fmt.Fprintf(a.out, "Status:  %s\n", item.WatchStatus())
}

func (a *app) printSources(sources []domain.Source) {
	a.printHeader("Sources")
	for _, src := range sources {
		origin := AccentStyle.Render(src.Origin.String())
		if src.Origin == domain.SourceLocal && src.Downloaded {
			origin = SuccessStyle.Render("downloaded")
		}
		line := fmt.Sprintf("%s %s %s/%s/%s", origin, TitleStyle.Render(src.Name), src.Container, src.VideoCodec, src.AudioCodec)
		if src.Bitrate > 0 {
			line += fmt.Sprintf(" %.1f Mbps", float64(src.Bitrate)/1e6)
		}
		if src.Path != "" {
			line += " " + DimStyle.Render(src.Path)
		}
		fmt.Fprintln(a.out, line)
		fmt.Fprintln(a.out, DimStyle.Render("  "+src.ID))
	}
}

func (a *app) printMutation(itemID uuid.UUID) {
	ud, _, err := a.store.GetUserData(a.repo.UserID(), itemID)
	if err != nil {
		a.logger.Warn("failed to read user data", "itemID", itemID, "error", err)
	}
	if a.repo.SessionExpired() {
		fmt.Fprintln(a.out, PendingStyle.Render(PendingChar+" Saved locally, session expired: run reel login to sync"))
		return
	}
	if ud.ToBeSynced {
		fmt.Fprintln(a.out, PendingStyle.Render(PendingChar+" Saved locally, will sync when the server is reachable"))
		return
	}
	fmt.Fprintln(a.out, SuccessStyle.Render("✓ Saved"))
}

func statusIndicator(ud domain.UserData) string {
	var b strings.Builder
	switch {
	case ud.Played:
		b.WriteString(SuccessStyle.Render(WatchedChar))
	case ud.PlaybackPositionTicks > 0:
		b.WriteString(AccentStyle.Render(InProgressChar))
	default:
		b.WriteString(DimStyle.Render(UnwatchedChar))
	}
	if ud.Favorite {
		b.WriteString(PendingStyle.Render(FavoriteChar))
	} else {
		b.WriteString(" ")
	}
	if ud.ToBeSynced {
		b.WriteString(PendingStyle.Render(PendingChar))
	}
	return b.String()
}

func formatSeconds(s float64) string {
	total := int(s)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
