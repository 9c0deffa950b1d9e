package jellyfin

import "github.com/mmcdole/reel/internal/domain"

// AuthResponse represents the response from Jellyfin's AuthenticateByName endpoint
type AuthResponse struct {
	User        User   `json:"User"`
	AccessToken string `json:"AccessToken"`
	ServerID    string `json:"ServerId"`
}

// User represents a Jellyfin user
type User struct {
	ID            string            `json:"Id"`
	Name          string            `json:"Name"`
	ServerID      string            `json:"ServerId"`
	HasPassword   bool              `json:"HasPassword"`
	Configuration UserConfiguration `json:"Configuration"`
}

// UserConfiguration is the user's server-side playback preferences
type UserConfiguration struct {
	AudioLanguagePreference    string `json:"AudioLanguagePreference"`
	SubtitleLanguagePreference string `json:"SubtitleLanguagePreference"`
	SubtitleMode               string `json:"SubtitleMode"`
	PlayDefaultAudioTrack      bool   `json:"PlayDefaultAudioTrack"`
	EnableNextEpisodeAutoPlay  bool   `json:"EnableNextEpisodeAutoPlay"`
	RememberAudioSelections    bool   `json:"RememberAudioSelections"`
	RememberSubtitleSelections bool   `json:"RememberSubtitleSelections"`
}

// SystemInfo represents the public system info from Jellyfin
type SystemInfo struct {
	LocalAddress           string `json:"LocalAddress"`
	ServerName             string `json:"ServerName"`
	Version                string `json:"Version"`
	ProductName            string `json:"ProductName"`
	ID                     string `json:"Id"`
	StartupWizardCompleted bool   `json:"StartupWizardCompleted"`
}

// ItemsResponse represents a paginated list of items from Jellyfin
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
	StartIndex       int    `json:"StartIndex"`
}

// Item represents a media item from Jellyfin (movie, show, season, episode, etc.)
type Item struct {
	ID                string        `json:"Id"`
	ServerID          string        `json:"ServerId,omitempty"`
	Name              string        `json:"Name"`
	OriginalTitle     string        `json:"OriginalTitle,omitempty"`
	Overview          string        `json:"Overview"`
	Type              string        `json:"Type"`
	CollectionType    string        `json:"CollectionType,omitempty"` // For libraries: "movies", "tvshows"
	LocationType      string        `json:"LocationType,omitempty"`   // "Virtual" for missing episodes
	Status            string        `json:"Status,omitempty"`
	PremiereDate      string        `json:"PremiereDate,omitempty"`
	EndDate           string        `json:"EndDate,omitempty"`
	ProductionYear    int           `json:"ProductionYear,omitempty"`
	RunTimeTicks      int64         `json:"RunTimeTicks,omitempty"` // Duration in 100-nanosecond units
	CommunityRating   float64       `json:"CommunityRating,omitempty"`
	OfficialRating    string        `json:"OfficialRating,omitempty"`
	Genres            []string      `json:"Genres,omitempty"`
	CanDownload       bool          `json:"CanDownload,omitempty"`
	CanDelete         bool          `json:"CanDelete,omitempty"`
	ParentID          string        `json:"ParentId,omitempty"`
	SeriesID          string        `json:"SeriesId,omitempty"`
	SeriesName        string        `json:"SeriesName,omitempty"`
	SeasonID          string        `json:"SeasonId,omitempty"`
	ParentIndexNumber int           `json:"ParentIndexNumber,omitempty"` // Season number
	IndexNumber       int           `json:"IndexNumber,omitempty"`       // Episode number
	IndexNumberEnd    int           `json:"IndexNumberEnd,omitempty"`
	ChildCount        int           `json:"ChildCount,omitempty"`
	UserData          *UserData     `json:"UserData,omitempty"`
	MediaSources      []MediaSource `json:"MediaSources,omitempty"`
}

// UserData contains user-specific data for an item (watch status, progress)
type UserData struct {
	PlaybackPositionTicks int64 `json:"PlaybackPositionTicks"`
	PlayCount             int   `json:"PlayCount"`
	IsFavorite            bool  `json:"IsFavorite"`
	Played                bool  `json:"Played"`
	UnplayedItemCount     int   `json:"UnplayedItemCount,omitempty"` // For containers like shows/seasons
}

// MediaSource represents a media source (file) for an item
type MediaSource struct {
	ID                   string        `json:"Id"`
	Path                 string        `json:"Path"`
	Protocol             string        `json:"Protocol"` // "File" or "Http"
	Container            string        `json:"Container"`
	Size                 int64         `json:"Size"`
	Name                 string        `json:"Name"`
	Bitrate              int           `json:"Bitrate,omitempty"`
	RunTimeTicks         int64         `json:"RunTimeTicks"`
	SupportsDirectPlay   bool          `json:"SupportsDirectPlay"`
	SupportsDirectStream bool          `json:"SupportsDirectStream"`
	SupportsTranscoding  bool          `json:"SupportsTranscoding"`
	TranscodingURL       string        `json:"TranscodingUrl,omitempty"`
	TranscodingContainer string        `json:"TranscodingContainer,omitempty"`
	TranscodeReasons     []string      `json:"TranscodeReasons,omitempty"`
	MediaStreams         []MediaStream `json:"MediaStreams,omitempty"`
}

// MediaStream represents a video, audio, or subtitle stream
type MediaStream struct {
	Codec        string `json:"Codec"`
	Language     string `json:"Language,omitempty"`
	DisplayTitle string `json:"DisplayTitle,omitempty"`
	Type         string `json:"Type"` // "Video", "Audio", "Subtitle"
	Index        int    `json:"Index"`
	IsDefault    bool   `json:"IsDefault"`
	IsForced     bool   `json:"IsForced"`
	IsExternal   bool   `json:"IsExternal"`
	Path         string `json:"Path,omitempty"`
	Height       int    `json:"Height,omitempty"`
	Width        int    `json:"Width,omitempty"`
	BitRate      int    `json:"BitRate,omitempty"`
	Channels     int    `json:"Channels,omitempty"`
}

// PlaybackInfoRequest is the body posted to /Items/{id}/PlaybackInfo
type PlaybackInfoRequest struct {
	UserID               string               `json:"UserId"`
	MaxStreamingBitrate  int                  `json:"MaxStreamingBitrate"`
	DeviceProfile        domain.DeviceProfile `json:"DeviceProfile"`
	EnableTranscoding    bool                 `json:"EnableTranscoding"`
	EnableDirectPlay     bool                 `json:"EnableDirectPlay"`
	EnableDirectStream   bool                 `json:"EnableDirectStream"`
	AutoOpenLiveStream   bool                 `json:"AutoOpenLiveStream"`
	AllowAudioStreamCopy bool                 `json:"AllowAudioStreamCopy"`
	AllowVideoStreamCopy bool                 `json:"AllowVideoStreamCopy"`
}

// PlaybackInfoResponse contains playback information for an item
type PlaybackInfoResponse struct {
	MediaSources  []MediaSource `json:"MediaSources"`
	PlaySessionID string        `json:"PlaySessionId"`
	ErrorCode     string        `json:"ErrorCode,omitempty"`
}

// Segment is one entry of the intro-skipper segment map
type Segment struct {
	IntroStart       float64 `json:"IntroStart"`
	IntroEnd         float64 `json:"IntroEnd"`
	ShowSkipPromptAt float64 `json:"ShowSkipPromptAt"`
	HideSkipPromptAt float64 `json:"HideSkipPromptAt"`
}

// ClientCapabilities is the body posted to /Sessions/Capabilities/Full
type ClientCapabilities struct {
	PlayableMediaTypes   []string `json:"PlayableMediaTypes"`
	SupportedCommands    []string `json:"SupportedCommands"`
	SupportsMediaControl bool     `json:"SupportsMediaControl"`
}

// PlaybackReport is the body posted to the /Sessions/Playing endpoints
type PlaybackReport struct {
	ItemID        string `json:"ItemId"`
	PositionTicks int64  `json:"PositionTicks,omitempty"`
	IsPaused      bool   `json:"IsPaused,omitempty"`
}

// DeviceOptions is the body posted to /Devices/Options
type DeviceOptions struct {
	CustomName string `json:"CustomName"`
}
