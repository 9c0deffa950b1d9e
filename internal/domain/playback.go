package domain

import "github.com/google/uuid"

// ProfileType is the media type a profile applies to
type ProfileType string

const (
	ProfileVideo ProfileType = "Video"
	ProfileAudio ProfileType = "Audio"
)

// EncodingContext tells the server how the transcode will be consumed
type EncodingContext string

const (
	ContextStreaming EncodingContext = "Streaming"
	ContextStatic    EncodingContext = "Static"
)

// SubtitleDeliveryMethod is how subtitles reach the player
type SubtitleDeliveryMethod string

const (
	SubtitleExternal SubtitleDeliveryMethod = "External"
	SubtitleEncode   SubtitleDeliveryMethod = "Encode"
	SubtitleEmbed    SubtitleDeliveryMethod = "Embed"
	SubtitleHLS      SubtitleDeliveryMethod = "Hls"
)

// DeviceProfile describes what the client can play
type DeviceProfile struct {
	Name                string               `json:"Name"`
	ID                  string               `json:"Id,omitempty"`
	MaxStaticBitrate    int                  `json:"MaxStaticBitrate"`
	MaxStreamingBitrate int                  `json:"MaxStreamingBitrate"`
	CodecProfiles       []CodecProfile       `json:"CodecProfiles"`
	ContainerProfiles   []ContainerProfile   `json:"ContainerProfiles"`
	DirectPlayProfiles  []DirectPlayProfile  `json:"DirectPlayProfiles"`
	TranscodingProfiles []TranscodingProfile `json:"TranscodingProfiles"`
	SubtitleProfiles    []SubtitleProfile    `json:"SubtitleProfiles"`
}

// CodecProfile constrains a codec; unused but sent as an empty list
type CodecProfile struct {
	Type       ProfileType        `json:"Type"`
	Codec      string             `json:"Codec,omitempty"`
	Conditions []ProfileCondition `json:"Conditions,omitempty"`
}

// ContainerProfile constrains a container; unused but sent as an empty list
type ContainerProfile struct {
	Type       ProfileType        `json:"Type"`
	Container  string             `json:"Container,omitempty"`
	Conditions []ProfileCondition `json:"Conditions,omitempty"`
}

// DirectPlayProfile allows direct play of a media type
type DirectPlayProfile struct {
	Type       ProfileType `json:"Type"`
	Container  string      `json:"Container,omitempty"`
	VideoCodec string      `json:"VideoCodec,omitempty"`
	AudioCodec string      `json:"AudioCodec,omitempty"`
}

// TranscodingProfile tells the server what to transcode into
type TranscodingProfile struct {
	Container                 string             `json:"Container"`
	Type                      ProfileType        `json:"Type"`
	Context                   EncodingContext    `json:"Context"`
	Protocol                  string             `json:"Protocol"`
	AudioCodec                string             `json:"AudioCodec"`
	VideoCodec                string             `json:"VideoCodec"`
	Conditions                []ProfileCondition `json:"Conditions"`
	CopyTimestamps            bool               `json:"CopyTimestamps"`
	EnableSubtitlesInManifest bool               `json:"EnableSubtitlesInManifest"`
	TranscodeSeekInfo         string             `json:"TranscodeSeekInfo"`
}

// ProfileCondition is a single constraint inside a profile
type ProfileCondition struct {
	Condition  string `json:"Condition"` // "LessThanEqual", ...
	Property   string `json:"Property"`  // "VideoBitrate", ...
	Value      string `json:"Value"`
	IsRequired bool   `json:"IsRequired"`
}

// SubtitleProfile declares a subtitle format and how it is delivered
type SubtitleProfile struct {
	Format string                 `json:"Format"`
	Method SubtitleDeliveryMethod `json:"Method"`
}

// PlaybackInfoRequest is posted to the server's playback-info negotiation
type PlaybackInfoRequest struct {
	UserID               uuid.UUID
	DeviceProfile        DeviceProfile
	MaxStreamingBitrate  int
	EnableTranscoding    bool
	EnableDirectPlay     bool
	EnableDirectStream   bool
	AutoOpenLiveStream   bool
	AllowAudioStreamCopy bool
	AllowVideoStreamCopy bool
}

// PlaybackInfo is the server's negotiated answer
type PlaybackInfo struct {
	Sources       []Source
	PlaySessionID string
	ErrorCode     string
}

// AutoBitrate is the video bitrate sentinel that selects adaptive streaming
const AutoBitrate = 1

// VideoQuality is a user-facing streaming quality preset
type VideoQuality int

const (
	QualityAuto VideoQuality = iota
	QualityOriginal
	Quality1080p
	Quality720p
	Quality480p
	Quality360p
)

// Bitrate returns the video bitrate for a quality preset
func (q VideoQuality) Bitrate() int {
	switch q {
	case QualityOriginal:
		return 1_000_000_000
	case Quality1080p:
		return 8_000_000
	case Quality720p:
		return 2_000_000
	case Quality480p:
		return 1_000_000
	case Quality360p:
		return 800_000
	default:
		return AutoBitrate
	}
}

// Height returns the max video height for a quality preset (0 = unbounded)
func (q VideoQuality) Height() int {
	switch q {
	case Quality1080p:
		return 1080
	case Quality720p:
		return 720
	case Quality480p:
		return 480
	case Quality360p:
		return 360
	default:
		return 0
	}
}

// StreamParams describes a stream URL to build. Zero numeric fields and
// empty strings are omitted from the URL.
type StreamParams struct {
	ItemID           uuid.UUID
	Static           bool
	DeviceID         string
	MediaSourceID    string
	PlaySessionID    string
	Container        string
	VideoBitrate     int
	AudioBitrate     int
	VideoCodec       string
	AudioCodec       string
	MaxHeight        int
	StartTimeTicks   int64
	CopyTimestamps   bool
	SubtitleMethod   SubtitleDeliveryMethod
	Context          EncodingContext
	SegmentContainer string
	TranscodeReasons string

	// EnableAdaptiveBitrate is sent on master playlists only
	EnableAdaptiveBitrate bool
}

// SystemInfo is the server's public identity
type SystemInfo struct {
	ID           string
	ServerName   string
	Version      string
	ProductName  string
	LocalAddress string
}

// UserConfiguration is the subset of the user's server-side preferences the client reads
type UserConfiguration struct {
	AudioLanguagePreference    string
	SubtitleLanguagePreference string
	SubtitleMode               string
	PlayDefaultAudioTrack      bool
	EnableNextEpisodeAutoPlay  bool
	RememberAudioSelections    bool
	RememberSubtitleSelections bool
}
