package domain

import (
	"context"

	"github.com/google/uuid"
)

// RemoteClient: Network operations against the media server (implemented by jellyfin.Client).
// Every method may fail with ErrServerOffline, ErrAuthFailed, ErrItemNotFound or *ServerError.
type RemoteClient interface {
	GetPublicSystemInfo(ctx context.Context) (SystemInfo, error)
	GetUserViews(ctx context.Context) ([]Item, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (Item, error)
	GetItems(ctx context.Context, q ItemQuery) ([]Item, int, error)
	GetResumeItems(ctx context.Context, limit int, types []ItemKind) ([]Item, error)
	GetLatestMedia(ctx context.Context, parentID uuid.UUID, limit int) ([]Item, error)
	GetSeasons(ctx context.Context, seriesID uuid.UUID) ([]Item, error)
	GetNextUp(ctx context.Context, seriesID uuid.UUID, limit int) ([]Item, error)
	GetEpisodes(ctx context.Context, q EpisodeQuery) ([]Item, error)

	PostPlaybackInfo(ctx context.Context, itemID uuid.UUID, req PlaybackInfoRequest) (PlaybackInfo, error)
	StreamURL(p StreamParams) (string, error)
	MasterPlaylistURL(p StreamParams) (string, error)
	StopEncodingProcess(ctx context.Context, deviceID, playSessionID string) error

	GetSegments(ctx context.Context, itemID uuid.UUID) (map[string]RawSegment, error)
	GetTrickplayTile(ctx context.Context, itemID uuid.UUID, width, index int) ([]byte, error)

	PostCapabilities(ctx context.Context) error
	ReportPlaybackStart(ctx context.Context, itemID uuid.UUID) error
	ReportPlaybackProgress(ctx context.Context, itemID uuid.UUID, positionTicks int64, isPaused bool) error
	ReportPlaybackStopped(ctx context.Context, itemID uuid.UUID, positionTicks int64) error
	MarkFavorite(ctx context.Context, itemID uuid.UUID) error
	UnmarkFavorite(ctx context.Context, itemID uuid.UUID) error
	MarkPlayed(ctx context.Context, itemID uuid.UUID) error
	MarkUnplayed(ctx context.Context, itemID uuid.UUID) error

	UpdateDeviceOptions(ctx context.Context, deviceID, customName string) error
	GetUserConfiguration(ctx context.Context) (UserConfiguration, error)
}

// Store: Local Cache Store (implemented by store.Store).
// Mutators on the same (item, user) row are serialized; reads run concurrently.
type Store interface {
	// === Items ===
	GetItem(itemID uuid.UUID) (Item, bool, error)
	SaveItem(item Item) error
	// UpdateItem overwrites an item row only if it is already cached
	UpdateItem(item Item) (bool, error)
	DeleteItem(itemID uuid.UUID) error
	GetChildren(parentID uuid.UUID, kind ItemKind) ([]Item, error)
	ListByServer(serverID string, kind ItemKind) ([]Item, error)

	// === Sources ===
	GetSources(itemID uuid.UUID) ([]Source, error)
	SaveSource(src Source) error
	MarkSourceDownloaded(itemID uuid.UUID, sourceID, path string) error

	// === Segments ===
	GetSegments(itemID uuid.UUID) ([]Segment, error)
	SaveSegments(itemID uuid.UUID, segments []Segment) error

	// === User data ===
	GetUserData(userID, itemID uuid.UUID) (UserData, bool, error)
	// MutateUserData applies fn to the (user, item) row in one transaction
	// and bumps its revision. Missing rows start from the zero value.
	MutateUserData(userID, itemID uuid.UUID, fn func(*UserData)) (UserData, error)
	ListToBeSynced(userID uuid.UUID) ([]PendingUserData, error)
	// ClearToBeSynced clears the flag only if the row is still at revision
	ClearToBeSynced(userID, itemID uuid.UUID, revision uint64) (bool, error)

	Close() error
}
