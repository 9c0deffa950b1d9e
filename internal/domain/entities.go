package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TicksPerSecond is the number of resume-position ticks in one second.
// Jellyfin measures positions and runtimes in 100-nanosecond units.
const TicksPerSecond = 10_000_000

// ItemKind distinguishes the variants of Item
type ItemKind int

const (
	KindUnknown ItemKind = iota
	KindMovie
	KindShow
	KindSeason
	KindEpisode
	KindCollection
)

// String returns the server-side name of the kind
func (k ItemKind) String() string {
	switch k {
	case KindMovie:
		return "Movie"
	case KindShow:
		return "Series"
	case KindSeason:
		return "Season"
	case KindEpisode:
		return "Episode"
	case KindCollection:
		return "CollectionFolder"
	default:
		return "Unknown"
	}
}

// Item is a catalog entry. Shared fields live on Item itself; variant
// specific fields live in exactly one of the payload pointers, selected by Kind.
type Item struct {
	ID              uuid.UUID `json:"id"`
	Kind            ItemKind  `json:"kind"`
	ServerID        string    `json:"serverId,omitempty"`
	Name            string    `json:"name"`
	OriginalTitle   string    `json:"originalTitle,omitempty"`
	Overview        string    `json:"overview,omitempty"`
	ParentID        uuid.UUID `json:"parentId"`
	RunTimeTicks    int64     `json:"runTimeTicks,omitempty"`
	ProductionYear  int       `json:"productionYear,omitempty"`
	PremiereDate    time.Time `json:"premiereDate,omitempty"`
	CommunityRating float64   `json:"communityRating,omitempty"`
	OfficialRating  string    `json:"officialRating,omitempty"`
	Genres          []string  `json:"genres,omitempty"`
	CanDownload     bool      `json:"canDownload,omitempty"`
	CanDelete       bool      `json:"canDelete,omitempty"`

	// UserData is per user and never persisted with the item row
	UserData UserData `json:"-"`

	// Sources is filled for playable items (movies, episodes)
	Sources []Source `json:"-"`

	Movie      *MovieInfo      `json:"movie,omitempty"`
	Show       *ShowInfo       `json:"show,omitempty"`
	Season     *SeasonInfo     `json:"season,omitempty"`
	Episode    *EpisodeInfo    `json:"episode,omitempty"`
	Collection *CollectionInfo `json:"collection,omitempty"`
}

// MovieInfo holds movie-only fields
type MovieInfo struct {
	Status  string    `json:"status,omitempty"`
	EndDate time.Time `json:"endDate,omitempty"`
}

// ShowInfo holds series-only fields
type ShowInfo struct {
	Status     string    `json:"status,omitempty"`
	EndDate    time.Time `json:"endDate,omitempty"`
	ChildCount int       `json:"childCount,omitempty"`
}

// SeasonInfo holds season-only fields
type SeasonInfo struct {
	SeriesID     uuid.UUID `json:"seriesId"`
	SeriesName   string    `json:"seriesName,omitempty"`
	IndexNumber  int       `json:"indexNumber"`
	EpisodeCount int       `json:"episodeCount,omitempty"`
}

// EpisodeInfo holds episode-only fields
type EpisodeInfo struct {
	SeriesID          uuid.UUID `json:"seriesId"`
	SeriesName        string    `json:"seriesName,omitempty"`
	SeasonID          uuid.UUID `json:"seasonId"`
	ParentIndexNumber int       `json:"parentIndexNumber"` // Season number
	IndexNumber       int       `json:"indexNumber"`       // Episode number
	IndexNumberEnd    int       `json:"indexNumberEnd,omitempty"`
	MissingEpisode    bool      `json:"missingEpisode,omitempty"`
}

// CollectionInfo holds library/collection fields
type CollectionInfo struct {
	CollectionType string `json:"collectionType,omitempty"` // "movies", "tvshows", "boxsets", ...
}

// ContainerID returns the id of the item this one is listed under:
// the series for a season, the season for an episode, ParentID otherwise.
func (i Item) ContainerID() uuid.UUID {
	switch {
	case i.Kind == KindSeason && i.Season != nil && i.Season.SeriesID != uuid.Nil:
		return i.Season.SeriesID
	case i.Kind == KindEpisode && i.Episode != nil && i.Episode.SeasonID != uuid.Nil:
		return i.Episode.SeasonID
	default:
		return i.ParentID
	}
}

// Playable reports whether the item carries media sources of its own
func (i Item) Playable() bool {
	return i.Kind == KindMovie || i.Kind == KindEpisode
}

// RunTime returns the runtime as a duration
func (i Item) RunTime() time.Duration {
	return TicksToDuration(i.RunTimeTicks)
}

// EpisodeCode returns the formatted episode code (e.g., "S01E05")
func (i Item) EpisodeCode() string {
	if i.Kind != KindEpisode || i.Episode == nil {
		return ""
	}
	if i.Episode.IndexNumberEnd > i.Episode.IndexNumber {
		return fmt.Sprintf("S%02dE%02d-E%02d", i.Episode.ParentIndexNumber, i.Episode.IndexNumber, i.Episode.IndexNumberEnd)
	}
	return fmt.Sprintf("S%02dE%02d", i.Episode.ParentIndexNumber, i.Episode.IndexNumber)
}

// WatchStatus returns the watch status of the item
func (i Item) WatchStatus() WatchStatus {
	if i.UserData.Played {
		return WatchStatusWatched
	}
	if i.UserData.PlaybackPositionTicks > 0 {
		return WatchStatusInProgress
	}
	return WatchStatusUnwatched
}

// TicksToDuration converts server ticks to a time.Duration
func TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * 100
}

// DurationToTicks converts a time.Duration to server ticks
func DurationToTicks(d time.Duration) int64 {
	return int64(d / 100)
}

// WatchStatus represents the viewing state of media
type WatchStatus int

const (
	WatchStatusUnwatched WatchStatus = iota
	WatchStatusInProgress
	WatchStatusWatched
)

// String returns a human-readable representation of the watch status
func (w WatchStatus) String() string {
	switch w {
	case WatchStatusUnwatched:
		return "Unwatched"
	case WatchStatusInProgress:
		return "In Progress"
	case WatchStatusWatched:
		return "Watched"
	default:
		return "Unknown"
	}
}
