package jellyfin

import (
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
)

// kindFromType maps a Jellyfin item Type onto a domain.ItemKind
func kindFromType(t string) domain.ItemKind {
	switch t {
	case "Movie":
		return domain.KindMovie
	case "Series":
		return domain.KindShow
	case "Season":
		return domain.KindSeason
	case "Episode":
		return domain.KindEpisode
	case "CollectionFolder", "BoxSet", "Folder", "UserView":
		return domain.KindCollection
	default:
		return domain.KindUnknown
	}
}

// typeNames converts domain kinds into an IncludeItemTypes value list
func typeNames(kinds []domain.ItemKind) []string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if k == domain.KindCollection {
			names = append(names, "CollectionFolder", "BoxSet")
			continue
		}
		if k != domain.KindUnknown {
			names = append(names, k.String())
		}
	}
	return names
}

// parseID parses a Jellyfin id (dashed or 32 hex chars); malformed ids map to uuid.Nil
func parseID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MapItems converts Jellyfin items to domain items, skipping unknown types
func MapItems(items []Item) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		mapped := MapItem(item)
		if mapped.Kind == domain.KindUnknown || mapped.ID == uuid.Nil {
			continue
		}
		out = append(out, mapped)
	}
	return out
}

// MapItem converts a single Jellyfin item into the matching domain variant
func MapItem(item Item) domain.Item {
	di := domain.Item{
		ID:              parseID(item.ID),
		Kind:            kindFromType(item.Type),
		ServerID:        item.ServerID,
		Name:            item.Name,
		OriginalTitle:   item.OriginalTitle,
		Overview:        item.Overview,
		ParentID:        parseID(item.ParentID),
		RunTimeTicks:    item.RunTimeTicks,
		ProductionYear:  item.ProductionYear,
		PremiereDate:    parseDate(item.PremiereDate),
		CommunityRating: item.CommunityRating,
		OfficialRating:  item.OfficialRating,
		Genres:          item.Genres,
		CanDownload:     item.CanDownload,
		CanDelete:       item.CanDelete,
	}

	if item.UserData != nil {
		di.UserData = domain.UserData{
			Favorite:              item.UserData.IsFavorite,
			Played:                item.UserData.Played,
			PlaybackPositionTicks: item.UserData.PlaybackPositionTicks,
			PlayCount:             item.UserData.PlayCount,
			UnplayedItemCount:     item.UserData.UnplayedItemCount,
		}
	}

	switch di.Kind {
	case domain.KindMovie:
		di.Movie = &domain.MovieInfo{Status: item.Status, EndDate: parseDate(item.EndDate)}
	case domain.KindShow:
		di.Show = &domain.ShowInfo{Status: item.Status, EndDate: parseDate(item.EndDate), ChildCount: item.ChildCount}
	case domain.KindSeason:
		di.Season = &domain.SeasonInfo{
			SeriesID:     parseID(item.SeriesID),
			SeriesName:   item.SeriesName,
			IndexNumber:  item.IndexNumber,
			EpisodeCount: item.ChildCount,
		}
	case domain.KindEpisode:
		di.Episode = &domain.EpisodeInfo{
			SeriesID:          parseID(item.SeriesID),
			SeriesName:        item.SeriesName,
			SeasonID:          parseID(item.SeasonID),
			ParentIndexNumber: item.ParentIndexNumber,
			IndexNumber:       item.IndexNumber,
			IndexNumberEnd:    item.IndexNumberEnd,
			MissingEpisode:    item.LocationType == "Virtual",
		}
	case domain.KindCollection:
		di.Collection = &domain.CollectionInfo{CollectionType: item.CollectionType}
	}

	if di.Playable() {
		di.Sources = MapSources(di.ID, item.MediaSources)
	}

	return di
}

// MapSources converts Jellyfin media sources into remote-origin domain sources, preserving order
func MapSources(itemID uuid.UUID, sources []MediaSource) []domain.Source {
	out := make([]domain.Source, 0, len(sources))
	for _, ms := range sources {
		src := domain.Source{
			ID:                   ms.ID,
			ItemID:               itemID,
			Name:                 ms.Name,
			Origin:               domain.SourceRemote,
			Path:                 ms.Path,
			Protocol:             ms.Protocol,
			Container:            ms.Container,
			Bitrate:              ms.Bitrate,
			Size:                 ms.Size,
			RunTimeTicks:         ms.RunTimeTicks,
			SupportsDirectPlay:   ms.SupportsDirectPlay,
			SupportsDirectStream: ms.SupportsDirectStream,
			SupportsTranscoding:  ms.SupportsTranscoding,
			TranscodingURL:       ms.TranscodingURL,
			TranscodingContainer: ms.TranscodingContainer,
			TranscodeReasons:     ms.TranscodeReasons,
		}

		for _, s := range ms.MediaStreams {
			src.MediaStreams = append(src.MediaStreams, domain.MediaStream{
				Index:        s.Index,
				Type:         s.Type,
				Codec:        s.Codec,
				Language:     s.Language,
				DisplayTitle: s.DisplayTitle,
				IsDefault:    s.IsDefault,
				IsForced:     s.IsForced,
				IsExternal:   s.IsExternal,
				Path:         s.Path,
				Width:        s.Width,
				Height:       s.Height,
				BitRate:      s.BitRate,
				Channels:     s.Channels,
			})
			// First video and audio streams name the source codecs
			switch {
			case s.Type == "Video" && src.VideoCodec == "":
				src.VideoCodec = s.Codec
			case s.Type == "Audio" && src.AudioCodec == "":
				src.AudioCodec = s.Codec
			}
		}

		out = append(out, src)
	}
	return out
}

// MapSegments classifies the intro-skipper segment map
func MapSegments(segments map[string]Segment) map[string]domain.RawSegment {
	out := make(map[string]domain.RawSegment, len(segments))
	for label, s := range segments {
		out[label] = domain.RawSegment{
			StartTime: s.IntroStart,
			EndTime:   s.IntroEnd,
			ShowAt:    s.ShowSkipPromptAt,
			HideAt:    s.HideSkipPromptAt,
		}
	}
	return out
}

func mapSystemInfo(info SystemInfo) domain.SystemInfo {
	return domain.SystemInfo{
		ID:           info.ID,
		ServerName:   info.ServerName,
		Version:      info.Version,
		ProductName:  info.ProductName,
		LocalAddress: info.LocalAddress,
	}
}

func mapUserConfiguration(cfg UserConfiguration) domain.UserConfiguration {
	return domain.UserConfiguration{
		AudioLanguagePreference:    cfg.AudioLanguagePreference,
		SubtitleLanguagePreference: cfg.SubtitleLanguagePreference,
		SubtitleMode:               cfg.SubtitleMode,
		PlayDefaultAudioTrack:      cfg.PlayDefaultAudioTrack,
		EnableNextEpisodeAutoPlay:  cfg.EnableNextEpisodeAutoPlay,
		RememberAudioSelections:    cfg.RememberAudioSelections,
		RememberSubtitleSelections: cfg.RememberSubtitleSelections,
	}
}
